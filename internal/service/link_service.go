package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
)

type linkStore interface {
	Create(ctx context.Context, link *models.RequestLink) error
	FindByToken(ctx context.Context, token string) (*models.RequestLink, error)
	MarkUsed(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit int) ([]models.RequestLink, error)
}

// LinkServiceConfig tunes link generation.
type LinkServiceConfig struct {
	BaseURL    string
	DefaultTTL time.Duration
}

// LinkService issues single-use submission links. Each link owns a
// placeholder request that the external submission later fills in.
type LinkService struct {
	links      linkStore
	requests   *RequestService
	activities activityStore
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
	cfg        LinkServiceConfig
}

// NewLinkService constructs a LinkService.
func NewLinkService(links linkStore, requests *RequestService, activities activityStore, validate *validator.Validate, logger *zap.Logger, cfg LinkServiceConfig) *LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 7 * 24 * time.Hour
	}
	return &LinkService{links: links, requests: requests, activities: activities, validator: validate, logger: logger, now: time.Now, cfg: cfg}
}

// Generate creates a link and its placeholder request.
func (s *LinkService) Generate(ctx context.Context, payload dto.GenerateLinkPayload, creatorID string) (*dto.LinkResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid link payload")
	}

	placeholder, err := s.requests.Create(ctx, dto.CreateRequestPayload{
		ServiceType: "Pending",
		Title:       "Pending external submission",
		Priority:    int(models.PriorityMedium),
		LocationID:  payload.LocationID,
	}, creatorID)
	if err != nil {
		return nil, err
	}

	token, err := randomToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate link token")
	}

	ttl := s.cfg.DefaultTTL
	if payload.TTLHours > 0 {
		ttl = time.Duration(payload.TTLHours) * time.Hour
	}
	expiresAt := s.now().UTC().Add(ttl)

	link := &models.RequestLink{
		RequestID:   placeholder.ID,
		Token:       token,
		LinkType:    payload.LinkType,
		LocationID:  payload.LocationID,
		PhoneNumber: payload.PhoneNumber,
		ExpiresAt:   &expiresAt,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist link")
	}

	return s.response(link), nil
}

// Resolve validates a token for the public submission form.
func (s *LinkService) Resolve(ctx context.Context, token string) (*models.RequestLink, error) {
	link, err := s.links.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load link")
	}
	if link.IsUsed {
		return nil, appErrors.Clone(appErrors.ErrLinkUsed, "")
	}
	if link.ExpiresAt != nil && s.now().UTC().After(*link.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrLinkExpired, "")
	}
	return link, nil
}

// Submit consumes a link: it fills the placeholder request with the
// submitted details and burns the token. The single-use guard is enforced
// at the storage layer so concurrent submissions cannot both win.
func (s *LinkService) Submit(ctx context.Context, token string, payload dto.SubmitViaLinkPayload) (*models.RequestDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	link, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	used, err := s.links.MarkUsed(ctx, link.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume link")
	}
	if !used {
		return nil, appErrors.Clone(appErrors.ErrLinkUsed, "")
	}

	detail, err := s.requests.Get(ctx, link.RequestID)
	if err != nil {
		return nil, err
	}
	req := detail.Request
	req.ServiceType = payload.ServiceType
	req.Title = payload.Title
	req.Description = payload.Description
	if payload.Priority != 0 {
		req.Priority = models.Priority(payload.Priority)
	}
	if payload.LocationID != nil {
		req.LocationID = payload.LocationID
	} else if link.LocationID != nil {
		req.LocationID = link.LocationID
	}
	requestedBy := strings.TrimSpace(payload.RequestedBy)
	req.RequestedBy = &requestedBy

	if err := s.requests.requests.Update(ctx, &req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}

	s.appendSubmissionLedger(ctx, link, &req)
	return s.requests.Get(ctx, req.ID)
}

// List returns recently generated links.
func (s *LinkService) List(ctx context.Context, limit int) ([]dto.LinkResponse, error) {
	links, err := s.links.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list links")
	}
	out := make([]dto.LinkResponse, 0, len(links))
	for i := range links {
		out = append(out, *s.response(&links[i]))
	}
	return out, nil
}

func (s *LinkService) appendSubmissionLedger(ctx context.Context, link *models.RequestLink, req *models.Request) {
	description := fmt.Sprintf("Submitted via %s link", strings.ToLower(link.LinkType))
	entry := &models.Activity{
		RequestID:   req.ID,
		UserID:      req.CreatedByID,
		Action:      models.ActivityActionUpdated,
		Description: &description,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.activities.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record link submission", zap.String("request_id", req.ID), zap.Error(err))
	}
}

func (s *LinkService) response(link *models.RequestLink) *dto.LinkResponse {
	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/submit/" + link.Token
	return &dto.LinkResponse{
		ID:        link.ID,
		Token:     link.Token,
		URL:       url,
		LinkType:  link.LinkType,
		ExpiresAt: link.ExpiresAt,
		IsUsed:    link.IsUsed,
		CreatedAt: link.CreatedAt,
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

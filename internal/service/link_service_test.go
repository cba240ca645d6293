package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
)

type fakeLinkStore struct {
	byToken map[string]*models.RequestLink
	nextID  int
}

func newFakeLinkStore() *fakeLinkStore {
	return &fakeLinkStore{byToken: make(map[string]*models.RequestLink)}
}

func (f *fakeLinkStore) Create(ctx context.Context, link *models.RequestLink) error {
	f.nextID++
	link.ID = fmt.Sprintf("link-%d", f.nextID)
	link.CreatedAt = time.Now().UTC()
	f.byToken[link.Token] = link
	return nil
}

func (f *fakeLinkStore) FindByToken(ctx context.Context, token string) (*models.RequestLink, error) {
	link, ok := f.byToken[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *link
	return &copied, nil
}

func (f *fakeLinkStore) MarkUsed(ctx context.Context, id string) (bool, error) {
	for _, link := range f.byToken {
		if link.ID == id {
			if link.IsUsed {
				return false, nil
			}
			link.IsUsed = true
			return true, nil
		}
	}
	return false, sql.ErrNoRows
}

func (f *fakeLinkStore) List(ctx context.Context, limit int) ([]models.RequestLink, error) {
	out := make([]models.RequestLink, 0, len(f.byToken))
	for _, link := range f.byToken {
		out = append(out, *link)
	}
	return out, nil
}

func newLinkServiceForTest(store *fakeLinkStore) (*LinkService, *fakeRequestStore, *fakeActivityStore) {
	requests := newFakeRequestStore()
	activities := &fakeActivityStore{}
	requestSvc := newRequestServiceForTest(requests, activities)
	svc := NewLinkService(store, requestSvc, activities, validator.New(), zap.NewNop(), LinkServiceConfig{
		BaseURL: "https://desk.example.org",
	})
	return svc, requests, activities
}

func TestLinkGenerateCreatesPlaceholderRequest(t *testing.T) {
	store := newFakeLinkStore()
	svc, requests, _ := newLinkServiceForTest(store)

	link, err := svc.Generate(context.Background(), dto.GenerateLinkPayload{LinkType: "QR"}, "staff-1")
	require.NoError(t, err)

	assert.NotEmpty(t, link.Token)
	assert.Equal(t, "https://desk.example.org/submit/"+link.Token, link.URL)
	require.NotNil(t, link.ExpiresAt)

	stored := store.byToken[link.Token]
	require.NotNil(t, stored)
	placeholder, err := requests.FindByID(context.Background(), stored.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "Pending external submission", placeholder.Title)
	assert.Equal(t, models.StatusNew, placeholder.Status)
}

func TestLinkGenerateHonoursTTL(t *testing.T) {
	store := newFakeLinkStore()
	svc, _, _ := newLinkServiceForTest(store)
	svc.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }

	link, err := svc.Generate(context.Background(), dto.GenerateLinkPayload{LinkType: "WHATSAPP", TTLHours: 48}, "staff-1")
	require.NoError(t, err)
	require.NotNil(t, link.ExpiresAt)
	assert.Equal(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), link.ExpiresAt.UTC())
}

func TestLinkSubmitFillsPlaceholderAndBurnsToken(t *testing.T) {
	store := newFakeLinkStore()
	svc, _, activities := newLinkServiceForTest(store)

	link, err := svc.Generate(context.Background(), dto.GenerateLinkPayload{LinkType: "QR"}, "staff-1")
	require.NoError(t, err)

	desc := "Water pooling under sink"
	detail, err := svc.Submit(context.Background(), link.Token, dto.SubmitViaLinkPayload{
		ServiceType: "Plumbing",
		Title:       "Leaking sink",
		Description: &desc,
		Priority:    int(models.PriorityHigh),
		RequestedBy: "  Ward 3 Nurse Station  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Leaking sink", detail.Title)
	assert.Equal(t, "Plumbing", detail.ServiceType)
	assert.Equal(t, models.PriorityHigh, detail.Priority)
	require.NotNil(t, detail.RequestedBy)
	assert.Equal(t, "Ward 3 Nurse Station", *detail.RequestedBy)

	assert.True(t, store.byToken[link.Token].IsUsed)

	entry := activities.last()
	require.NotNil(t, entry.Description)
	assert.Equal(t, "Submitted via qr link", *entry.Description)
}

func TestLinkSubmitSecondAttemptRejected(t *testing.T) {
	store := newFakeLinkStore()
	svc, _, _ := newLinkServiceForTest(store)

	link, err := svc.Generate(context.Background(), dto.GenerateLinkPayload{LinkType: "GENERIC"}, "staff-1")
	require.NoError(t, err)

	payload := dto.SubmitViaLinkPayload{ServiceType: "Plumbing", Title: "Leak", RequestedBy: "Visitor"}
	_, err = svc.Submit(context.Background(), link.Token, payload)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), link.Token, payload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLinkUsed.Code, appErrors.FromError(err).Code)
}

func TestLinkResolveExpired(t *testing.T) {
	store := newFakeLinkStore()
	svc, _, _ := newLinkServiceForTest(store)

	expired := time.Now().UTC().Add(-time.Hour)
	link := &models.RequestLink{RequestID: "req-1", Token: "stale", LinkType: "QR", ExpiresAt: &expired}
	require.NoError(t, store.Create(context.Background(), link))

	_, err := svc.Resolve(context.Background(), "stale")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLinkExpired.Code, appErrors.FromError(err).Code)
}

func TestLinkResolveUnknownToken(t *testing.T) {
	svc, _, _ := newLinkServiceForTest(newFakeLinkStore())

	_, err := svc.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
)

type linkServiceStub struct {
	link      *dto.LinkResponse
	resolved  *models.RequestLink
	submitted *models.RequestDetail
	err       error
}

func (s *linkServiceStub) Generate(ctx context.Context, payload dto.GenerateLinkPayload, creatorID string) (*dto.LinkResponse, error) {
	return s.link, s.err
}

func (s *linkServiceStub) Resolve(ctx context.Context, token string) (*models.RequestLink, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resolved, nil
}

func (s *linkServiceStub) Submit(ctx context.Context, token string, payload dto.SubmitViaLinkPayload) (*models.RequestDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.submitted, nil
}

func (s *linkServiceStub) List(ctx context.Context, limit int) ([]dto.LinkResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []dto.LinkResponse{*s.link}, nil
}

func TestLinkHandlerGenerate(t *testing.T) {
	expires := time.Now().UTC().Add(48 * time.Hour)
	stub := &linkServiceStub{link: &dto.LinkResponse{
		ID:        "link-1",
		Token:     "abc123",
		URL:       "https://desk.example.org/submit/abc123",
		LinkType:  "QR",
		ExpiresAt: &expires,
	}}
	h := NewLinkHandler(stub)

	c, w := testContext(t, http.MethodPost, "/links", dto.GenerateLinkPayload{LinkType: "QR"})
	withClaims(c, "staff-1", models.RoleStaff)

	h.Generate(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "abc123")
}

func TestLinkHandlerGenerateUnauthenticated(t *testing.T) {
	h := NewLinkHandler(&linkServiceStub{})

	c, w := testContext(t, http.MethodPost, "/links", dto.GenerateLinkPayload{LinkType: "QR"})
	h.Generate(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLinkHandlerResolve(t *testing.T) {
	expires := time.Now().UTC().Add(time.Hour)
	stub := &linkServiceStub{resolved: &models.RequestLink{Token: "abc123", LinkType: "QR", ExpiresAt: &expires}}
	h := NewLinkHandler(stub)

	c, w := testContext(t, http.MethodGet, "/submit/abc123", nil)
	c.Params = gin.Params{{Key: "token", Value: "abc123"}}

	h.Resolve(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "linkType")
}

func TestLinkHandlerResolveGone(t *testing.T) {
	stub := &linkServiceStub{err: appErrors.Clone(appErrors.ErrLinkUsed, "")}
	h := NewLinkHandler(stub)

	c, w := testContext(t, http.MethodGet, "/submit/abc123", nil)
	c.Params = gin.Params{{Key: "token", Value: "abc123"}}

	h.Resolve(c)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestLinkHandlerSubmit(t *testing.T) {
	stub := &linkServiceStub{submitted: sampleDetail()}
	h := NewLinkHandler(stub)

	c, w := testContext(t, http.MethodPost, "/submit/abc123", dto.SubmitViaLinkPayload{
		ServiceType: "Plumbing",
		Title:       "Leaking tap in ward 3",
		RequestedBy: "Ward 3 Nurse Station",
	})
	c.Params = gin.Params{{Key: "token", Value: "abc123"}}

	h.Submit(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "REQ-2026-0042")
}

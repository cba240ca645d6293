package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
	"github.com/careops/facilitydesk/pkg/response"
)

type linkService interface {
	Generate(ctx context.Context, payload dto.GenerateLinkPayload, creatorID string) (*dto.LinkResponse, error)
	Resolve(ctx context.Context, token string) (*models.RequestLink, error)
	Submit(ctx context.Context, token string, payload dto.SubmitViaLinkPayload) (*models.RequestDetail, error)
	List(ctx context.Context, limit int) ([]dto.LinkResponse, error)
}

// LinkHandler exposes single-use submission link endpoints. Generate and
// List are staff-facing; Resolve and Submit serve the public form.
type LinkHandler struct {
	service linkService
}

// NewLinkHandler constructs the handler.
func NewLinkHandler(service linkService) *LinkHandler {
	return &LinkHandler{service: service}
}

// Generate godoc
// @Summary Generate submission link
// @Description Create a single-use link with an attached placeholder request
// @Tags Links
// @Accept json
// @Produce json
// @Param payload body dto.GenerateLinkPayload true "Link payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /links [post]
func (h *LinkHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload dto.GenerateLinkPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	link, err := h.service.Generate(c.Request.Context(), payload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// List godoc
// @Summary List recent links
// @Tags Links
// @Produce json
// @Param limit query int false "Row limit"
// @Success 200 {object} response.Envelope
// @Router /links [get]
func (h *LinkHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	links, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// Resolve godoc
// @Summary Resolve submission link
// @Description Validate a token before showing the public form
// @Tags Links
// @Produce json
// @Param token path string true "Link token"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /submit/{token} [get]
func (h *LinkHandler) Resolve(c *gin.Context) {
	link, err := h.service.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"linkType":   link.LinkType,
		"locationId": link.LocationID,
		"expiresAt":  link.ExpiresAt,
	}, nil)
}

// Submit godoc
// @Summary Submit via link
// @Description Fill in the placeholder request and burn the token
// @Tags Links
// @Accept json
// @Produce json
// @Param token path string true "Link token"
// @Param payload body dto.SubmitViaLinkPayload true "Submission payload"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /submit/{token} [post]
func (h *LinkHandler) Submit(c *gin.Context) {
	var payload dto.SubmitViaLinkPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.service.Submit(c.Request.Context(), c.Param("token"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RequestResponseFromModel(detail), nil)
}

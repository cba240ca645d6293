package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
	"github.com/careops/facilitydesk/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, payload dto.CreateRequestPayload, creatorID string) (*models.RequestDetail, error)
	Get(ctx context.Context, id string) (*models.RequestDetail, error)
	History(ctx context.Context, id string) ([]models.ActivityDetail, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, *models.Pagination, error)
	Update(ctx context.Context, id string, payload dto.UpdateRequestPayload, actorID string) (*models.RequestDetail, error)
	ChangeStatus(ctx context.Context, id string, payload dto.StatusChangePayload, actorID string) (*models.RequestDetail, error)
	Assign(ctx context.Context, id string, payload dto.AssignPayload, actorID string) (*models.RequestDetail, error)
	Delete(ctx context.Context, id string, actorID string) error
}

type tatService interface {
	Compute(ctx context.Context, requestID string) (*dto.TATResponse, error)
}

// RequestHandler wires the ticket lifecycle to HTTP endpoints.
type RequestHandler struct {
	service requestService
	tat     tatService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestService, tat tatService) *RequestHandler {
	return &RequestHandler{service: service, tat: tat}
}

// Create godoc
// @Summary Create request
// @Description Register a new service request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload dto.CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), payload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.RequestResponseFromModel(detail))
}

// List godoc
// @Summary List requests
// @Description List requests with filtering and pagination
// @Tags Requests
// @Produce json
// @Param status query string false "Status filter"
// @Param departmentId query string false "Department filter"
// @Param assignedTo query string false "Assignee filter"
// @Param search query string false "Search term"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	filter, err := requestFilter(query)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.list(c, filter)
}

// Mine godoc
// @Summary List own requests
// @Description Requests created by the authenticated user
// @Tags Requests
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests/mine [get]
func (h *RequestHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	filter, err := requestFilter(query)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.CreatedByID = &claims.UserID
	h.list(c, filter)
}

func (h *RequestHandler) list(c *gin.Context, filter models.RequestFilter) {
	rows, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.RequestResponse, 0, len(rows))
	for i := range rows {
		items = append(items, dto.RequestResponseFromModel(&rows[i]))
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

func requestFilter(query dto.RequestQuery) (models.RequestFilter, error) {
	filter := models.RequestFilter{
		Search:        query.Search,
		ScheduledOnly: query.Scheduled,
		Page:          query.Page,
		PageSize:      query.PageSize,
	}
	if query.Status != "" {
		status, ok := models.ParseStatus(query.Status)
		if !ok {
			return filter, appErrors.Clone(appErrors.ErrInvalidStatus, "unknown status filter")
		}
		filter.Status = &status
	}
	if query.DepartmentID != "" {
		filter.DepartmentID = &query.DepartmentID
	}
	if query.AssignedToID != "" {
		filter.AssignedToID = &query.AssignedToID
	}
	if query.CreatedByID != "" {
		filter.CreatedByID = &query.CreatedByID
	}
	if query.LocationID != "" {
		filter.LocationID = &query.LocationID
	}
	if query.ServiceType != "" {
		filter.ServiceType = &query.ServiceType
	}
	return filter, nil
}

// Get godoc
// @Summary Get request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RequestResponseFromModel(detail), nil)
}

// Update godoc
// @Summary Update request
// @Description Partial update of request fields (status excluded)
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateRequestPayload true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests/{id} [patch]
func (h *RequestHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload dto.UpdateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), c.Param("id"), payload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RequestResponseFromModel(detail), nil)
}

// ChangeStatus godoc
// @Summary Change request status
// @Description Move a request through its lifecycle
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.StatusChangePayload true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/status [patch]
func (h *RequestHandler) ChangeStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload dto.StatusChangePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.service.ChangeStatus(c.Request.Context(), c.Param("id"), payload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RequestResponseFromModel(detail), nil)
}

// Assign godoc
// @Summary Assign request
// @Description Set or change the responsible staff member
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AssignPayload true "Assign payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/assign [patch]
func (h *RequestHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload dto.AssignPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.service.Assign(c.Request.Context(), c.Param("id"), payload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RequestResponseFromModel(detail), nil)
}

// Delete godoc
// @Summary Delete request
// @Description Remove a request and its activity ledger
// @Tags Requests
// @Param id path string true "Request ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Request history
// @Description Full activity ledger for a request, oldest first
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/history [get]
func (h *RequestHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activityEntries(entries), nil)
}

// TAT godoc
// @Summary Request turnaround time
// @Description Turnaround breakdown excluding time spent on hold
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/tat [get]
func (h *RequestHandler) TAT(c *gin.Context) {
	if h.tat == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	resp, err := h.tat.Compute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

func activityEntries(entries []models.ActivityDetail) []dto.ActivityResponse {
	out := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		item := dto.ActivityResponse{
			ID:          entry.ID,
			RequestID:   entry.RequestID,
			UserID:      entry.UserID,
			Action:      entry.Action,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		}
		if entry.UserName != nil {
			item.UserName = *entry.UserName
		}
		if entry.FromStatus != nil {
			from := string(*entry.FromStatus)
			item.FromStatus = &from
		}
		if entry.ToStatus != nil {
			to := string(*entry.ToStatus)
			item.ToStatus = &to
		}
		out = append(out, item)
	}
	return out
}

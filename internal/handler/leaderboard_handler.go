package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/middleware"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
	"github.com/careops/facilitydesk/pkg/response"
)

type leaderboardService interface {
	Monthly(ctx context.Context, query dto.LeaderboardQuery) (*dto.LeaderboardResponse, error)
	ExportCSV(ctx context.Context, query dto.LeaderboardQuery) (string, []byte, error)
}

// LeaderboardHandler exposes the monthly staff leaderboard.
type LeaderboardHandler struct {
	service leaderboardService
}

// NewLeaderboardHandler constructs the handler.
func NewLeaderboardHandler(service leaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// Monthly godoc
// @Summary Monthly leaderboard
// @Description Ranked staff scores for a month. Defaults to the current month
// @Tags Leaderboard
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Monthly(c *gin.Context) {
	var query dto.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	board, err := h.service.Monthly(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, board.CacheHit)
	response.JSON(c, http.StatusOK, board, nil)
}

// Download godoc
// @Summary Download leaderboard CSV
// @Description Ranked staff scores for a month as a CSV attachment
// @Tags Leaderboard
// @Produce text/csv
// @Param year query int false "Year"
// @Param month query int false "Month (1-12)"
// @Success 200 {file} file
// @Router /leaderboard/download [get]
func (h *LeaderboardHandler) Download(c *gin.Context) {
	var query dto.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	filename, body, err := h.service.ExportCSV(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", body)
}

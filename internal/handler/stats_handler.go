package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"cashpoints/referralhub/internal/service"
	"cashpoints/referralhub/pkg/response"
)

type StatsHandler struct {
	statsService    service.StatsService
	referrerService service.ReferrerService
	progression     service.ProgressionService
}

func NewStatsHandler(statsService service.StatsService, referrerService service.ReferrerService, progression service.ProgressionService) *StatsHandler {
	return &StatsHandler{
		statsService:    statsService,
		referrerService: referrerService,
		progression:     progression,
	}
}

// GetReferrer returns the aggregate projection, creating it (with a fresh
// referral code) on first access.
func (h *StatsHandler) GetReferrer(c *gin.Context) {
	referrer, err := h.referrerService.GetOrCreate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			response.BadRequest(c, "referrer id required")
			return
		}
		response.InternalError(c, "failed to load referrer")
		return
	}
	response.Success(c, referrer)
}

// GetStats returns the windowed earnings summary and referral counts.
func (h *StatsHandler) GetStats(c *gin.Context) {
	summary, err := h.statsService.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrReferrerNotFound) {
			response.NotFound(c, "referrer not found")
			return
		}
		response.InternalError(c, "failed to compute stats")
		return
	}
	response.Success(c, summary)
}

// GetBreakdown returns earnings sums grouped by kind.
func (h *StatsHandler) GetBreakdown(c *gin.Context) {
	breakdown, err := h.statsService.Breakdown(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, "failed to compute breakdown")
		return
	}
	response.Success(c, breakdown)
}

// GetEarnings returns a page of the earnings ledger, newest first.
func (h *StatsHandler) GetEarnings(c *gin.Context) {
	limit, offset := pageParams(c)
	earnings, err := h.statsService.Earnings(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		response.InternalError(c, "failed to list earnings")
		return
	}
	response.Success(c, earnings)
}

// GetNotifications returns a page of pending notifications for a referrer.
func (h *StatsHandler) GetNotifications(c *gin.Context) {
	limit, offset := pageParams(c)
	notifications, err := h.referrerService.Notifications(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		response.InternalError(c, "failed to list notifications")
		return
	}
	response.Success(c, notifications)
}

// GetLeaderboard returns ranked referrers by verified-referral count.
func (h *StatsHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.statsService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.InternalError(c, "failed to compute leaderboard")
		return
	}
	response.Success(c, entries)
}

// GetLevels returns the level threshold table.
func (h *StatsHandler) GetLevels(c *gin.Context) {
	response.Success(c, h.progression.Thresholds())
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

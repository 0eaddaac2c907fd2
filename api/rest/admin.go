package rest

import (
	"net/http"

	"github.com/asakura-games/guildserver/maintenance"
	"github.com/asakura-games/guildserver/scheduler"
	"github.com/asakura-games/guildserver/search"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes the operational endpoints: forced maintenance
// sweeps, leaderboard rebuilds and scheduler introspection.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	maint    *maintenance.Service
	searcher *search.Service
	sched    *scheduler.Scheduler
	serverID string
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(maint *maintenance.Service, searcher *search.Service, sched *scheduler.Scheduler, serverID string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{maint: maint, searcher: searcher, sched: sched, serverID: serverID, logger: logger}
}

// RunDailyMaintenance handles POST /api/admin/maintenance/daily.
func (h *AdminHandler) RunDailyMaintenance(c *gin.Context) {
	report, err := h.maint.PerformDailyMaintenance(c.Request.Context(), h.serverID)
	if err != nil {
		h.logger.Error("forced daily maintenance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "maintenance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"guilds_swept":         report.GuildsSwept,
		"invitations_expired":  report.InvitationsExpired,
		"members_pruned":       report.MembersPruned,
		"leadership_transfers": report.LeadershipTransfers,
		"guilds_dormant":       report.GuildsDormant,
		"errors":               report.Errors,
	})
}

// RunWeeklyMaintenance handles POST /api/admin/maintenance/weekly.
func (h *AdminHandler) RunWeeklyMaintenance(c *gin.Context) {
	report, err := h.maint.PerformWeeklyMaintenance(c.Request.Context(), h.serverID)
	if err != nil {
		h.logger.Error("forced weekly maintenance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "maintenance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"guilds_swept":   report.GuildsSwept,
		"quests_expired": report.QuestsExpired,
		"raids_failed":   report.RaidsFailed,
		"errors":         report.Errors,
	})
}

// RefreshLeaderboard handles POST /api/admin/leaderboard/refresh.
func (h *AdminHandler) RefreshLeaderboard(c *gin.Context) {
	if err := h.searcher.RefreshLeaderboard(c.Request.Context(), h.serverID); err != nil {
		h.logger.Error("leaderboard refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "leaderboard refreshed"})
}

// ListSweeps handles GET /api/admin/sweeps.
func (h *AdminHandler) ListSweeps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sweeps": h.sched.Names()})
}

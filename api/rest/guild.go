package rest

import (
	"net/http"

	"github.com/asakura-games/guildserver/guild"
	"github.com/asakura-games/guildserver/membership"
	mw "github.com/asakura-games/guildserver/middleware"
	"github.com/gin-gonic/gin"
)

// GuildHandler handles guild membership REST endpoints.
type GuildHandler struct {
	svc *membership.Service
}

// NewGuildHandler creates a new GuildHandler.
func NewGuildHandler(svc *membership.Service) *GuildHandler {
	return &GuildHandler{svc: svc}
}

type createGuildRequest struct {
	Name string `json:"name" binding:"required,min=2,max=24"`
	Tag  string `json:"tag"  binding:"required,min=2,max=5"`
}

// Create handles POST /api/guilds.
func (h *GuildHandler) Create(c *gin.Context) {
	var req createGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := h.svc.CreateGuild(c.Request.Context(), mw.GetPlayerID(c), req.Name, req.Tag)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

type applyRequest struct {
	Message string `json:"message" binding:"max=200"`
}

// Apply handles POST /api/guilds/:id/apply.
func (h *GuildHandler) Apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	joined, err := h.svc.ApplyToGuild(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), req.Message)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": joined})
}

type processApplicationRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	Accept   bool   `json:"accept"`
}

// ProcessApplication handles POST /api/guilds/:id/applications/process.
func (h *GuildHandler) ProcessApplication(c *gin.Context) {
	var req processApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.ProcessApplication(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), req.PlayerID, req.Accept)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": req.Accept})
}

type inviteRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

// Invite handles POST /api/guilds/:id/invitations.
func (h *GuildHandler) Invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.InviteMember(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), req.PlayerID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invited": req.PlayerID})
}

type processInvitationRequest struct {
	Accept bool `json:"accept"`
}

// ProcessInvitation handles POST /api/guilds/:id/invitations/process.
func (h *GuildHandler) ProcessInvitation(c *gin.Context) {
	var req processInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.ProcessInvitation(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), req.Accept)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": req.Accept})
}

// Leave handles POST /api/guilds/:id/leave.
func (h *GuildHandler) Leave(c *gin.Context) {
	if err := h.svc.LeaveGuild(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left guild"})
}

// Kick handles DELETE /api/guilds/:id/members/:pid.
func (h *GuildHandler) Kick(c *gin.Context) {
	err := h.svc.KickMember(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), c.Param("pid"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kicked": c.Param("pid")})
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// Promote handles PUT /api/guilds/:id/members/:pid/promote.
func (h *GuildHandler) Promote(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.PromoteMember(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), c.Param("pid"), guild.Role(req.Role))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": req.Role})
}

// Demote handles PUT /api/guilds/:id/members/:pid/demote.
func (h *GuildHandler) Demote(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.DemoteMember(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), c.Param("pid"), guild.Role(req.Role))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": req.Role})
}

// Disband handles DELETE /api/guilds/:id.
func (h *GuildHandler) Disband(c *gin.Context) {
	if err := h.svc.DisbandGuild(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "guild disbanded"})
}

type settingsRequest struct {
	Visibility     string `json:"visibility" binding:"omitempty,oneof=public private"`
	AutoAccept     bool   `json:"auto_accept"`
	MinLevel       int    `json:"min_level" binding:"min=0"`
	MinPower       int64  `json:"min_power" binding:"min=0"`
	InactivityDays int    `json:"inactivity_days" binding:"min=0"`
}

// UpdateSettings handles PUT /api/guilds/:id/settings.
func (h *GuildHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := guild.Settings{
		Visibility:     guild.Visibility(req.Visibility),
		AutoAccept:     req.AutoAccept,
		MinLevel:       req.MinLevel,
		MinPower:       req.MinPower,
		InactivityDays: req.InactivityDays,
	}
	if s.Visibility == "" {
		s.Visibility = guild.VisibilityPublic
	}
	if err := h.svc.UpdateSettings(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), s); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "settings updated"})
}

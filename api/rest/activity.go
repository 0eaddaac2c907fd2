package rest

import (
	"net/http"

	"github.com/asakura-games/guildserver/activity"
	mw "github.com/asakura-games/guildserver/middleware"
	"github.com/gin-gonic/gin"
)

// ActivityHandler handles quest, raid, bank and reward REST endpoints.
type ActivityHandler struct {
	svc *activity.Service
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(svc *activity.Service) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// QuestTemplates handles GET /api/guilds/quest-templates.
func (h *ActivityHandler) QuestTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": activity.QuestTemplates()})
}

// RaidTemplates handles GET /api/guilds/raid-templates.
func (h *ActivityHandler) RaidTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": activity.RaidTemplates()})
}

type startQuestRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

// StartQuest handles POST /api/guilds/:id/quests.
func (h *ActivityHandler) StartQuest(c *gin.Context) {
	var req startQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q, err := h.svc.StartGuildQuest(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), req.TemplateID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

type contributeRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// Contribute handles POST /api/guilds/:id/quests/:qid/contribute.
func (h *ActivityHandler) Contribute(c *gin.Context) {
	var req contributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.ContributeQuestProgress(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), c.Param("qid"), req.Amount)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"applied":          res.Applied,
		"already_complete": res.AlreadyComplete,
		"completed":        res.Completed,
		"progress":         res.Progress,
		"target":           res.Target,
		"player_total":     res.PlayerTotal,
		"milestones":       res.Milestones,
	})
}

type startRaidRequest struct {
	Type       string `json:"type" binding:"required"`
	Difficulty int    `json:"difficulty" binding:"min=1,max=10"`
}

// StartRaid handles POST /api/guilds/:id/raids.
func (h *ActivityHandler) StartRaid(c *gin.Context) {
	var req startRaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.svc.StartGuildRaid(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), req.Type, req.Difficulty)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// JoinRaid handles POST /api/guilds/:id/raids/:rid/join.
func (h *ActivityHandler) JoinRaid(c *gin.Context) {
	err := h.svc.JoinGuildRaid(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), c.Param("rid"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined raid"})
}

type readyRequest struct {
	Ready bool `json:"ready"`
}

// SetReady handles PUT /api/guilds/:id/raids/:rid/ready.
func (h *ActivityHandler) SetReady(c *gin.Context) {
	var req readyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.SetRaidReady(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), c.Param("rid"), req.Ready)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": req.Ready})
}

// BeginRaid handles POST /api/guilds/:id/raids/:rid/begin.
func (h *ActivityHandler) BeginRaid(c *gin.Context) {
	err := h.svc.BeginRaid(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), c.Param("rid"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "raid started"})
}

type attackRequest struct {
	Damage int64 `json:"damage" binding:"required,gt=0"`
}

// Attack handles POST /api/guilds/:id/raids/:rid/attack.
func (h *ActivityHandler) Attack(c *gin.Context) {
	var req attackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.AttackRaidBoss(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c), c.Param("rid"), req.Damage)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"damage":      res.Damage,
		"boss_health": res.Health,
		"completed":   res.Completed,
		"milestones":  res.Milestones,
		"rankings":    res.Rankings,
	})
}

type donateRequest struct {
	Gold      int64            `json:"gold" binding:"min=0"`
	Materials map[string]int64 `json:"materials"`
}

// Donate handles POST /api/guilds/:id/bank/donate.
func (h *ActivityHandler) Donate(c *gin.Context) {
	var req donateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Gold <= 0 && len(req.Materials) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to donate"})
		return
	}
	ctx := c.Request.Context()
	playerID := mw.GetPlayerID(c)
	if req.Gold > 0 {
		if err := h.svc.DonateGold(ctx, c.Param("id"), playerID, req.Gold); err != nil {
			respondErr(c, err)
			return
		}
	}
	if len(req.Materials) > 0 {
		if err := h.svc.DonateMaterials(ctx, c.Param("id"), playerID, req.Materials); err != nil {
			respondErr(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "donation received"})
}

// ClaimDaily handles POST /api/guilds/:id/rewards/daily.
func (h *ActivityHandler) ClaimDaily(c *gin.Context) {
	bundle, err := h.svc.ClaimDailyReward(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": bundle})
}

// ClaimWeekly handles POST /api/guilds/:id/rewards/weekly.
func (h *ActivityHandler) ClaimWeekly(c *gin.Context) {
	bundle, err := h.svc.ClaimWeeklyReward(c.Request.Context(), c.Param("id"), mw.GetPlayerID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": bundle})
}

package rest

import (
	"net/http"
	"strconv"

	mw "github.com/asakura-games/guildserver/middleware"
	"github.com/asakura-games/guildserver/search"
	"github.com/gin-gonic/gin"
)

// SearchHandler handles guild listing and leaderboard REST endpoints.
type SearchHandler struct {
	svc *search.Service
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// List handles GET /api/guilds.
func (h *SearchHandler) List(c *gin.Context) {
	q := search.Query{
		ServerID:   mw.GetServerID(c),
		NamePrefix: c.Query("name"),
		PublicOnly: c.Query("public") == "true",
	}
	if v := c.Query("min_level"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.MinLevel = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Offset = n
		}
	}
	out, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guilds": out})
}

// Detail handles GET /api/guilds/:id.
func (h *SearchHandler) Detail(c *gin.Context) {
	g, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild": g, "stats": g.ComputeStats()})
}

// Top handles GET /api/guilds/top.
func (h *SearchHandler) Top(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	out, err := h.svc.TopGuilds(c.Request.Context(), mw.GetServerID(c), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guilds": out})
}

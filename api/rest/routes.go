package rest

import (
	"github.com/asakura-games/guildserver/activity"
	"github.com/asakura-games/guildserver/cache"
	"github.com/asakura-games/guildserver/config"
	"github.com/asakura-games/guildserver/maintenance"
	"github.com/asakura-games/guildserver/membership"
	mw "github.com/asakura-games/guildserver/middleware"
	"github.com/asakura-games/guildserver/scheduler"
	"github.com/asakura-games/guildserver/search"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps carries everything the REST layer needs wired in.
type Deps struct {
	DB         *gorm.DB
	Cache      cache.Cache
	Security   config.SecurityConfig
	Server     config.ServerConfig
	Membership *membership.Service
	Activity   *activity.Service
	Maint      *maintenance.Service
	Search     *search.Service
	Sched      *scheduler.Scheduler
	Logger     *zap.Logger
}

// RegisterRoutes mounts the full API surface under /api.
func RegisterRoutes(r *gin.Engine, d Deps) {
	authH := NewAuthHandler(d.DB, d.Cache, d.Security, d.Server)
	guildH := NewGuildHandler(d.Membership)
	activityH := NewActivityHandler(d.Activity)
	searchH := NewSearchHandler(d.Search)
	adminH := NewAdminHandler(d.Maint, d.Search, d.Sched, d.Server.ServerID, d.Logger)

	authed := mw.Auth(d.Security, d.Cache)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", authed, authH.Logout)
		authG.POST("/refresh", authed, authH.Refresh)

		guildsG := api.Group("/guilds")
		guildsG.Use(authed)
		guildsG.GET("", searchH.List)
		guildsG.GET("/top", searchH.Top)
		guildsG.GET("/quest-templates", activityH.QuestTemplates)
		guildsG.GET("/raid-templates", activityH.RaidTemplates)
		guildsG.POST("", guildH.Create)
		guildsG.GET("/:id", searchH.Detail)
		guildsG.DELETE("/:id", guildH.Disband)
		guildsG.PUT("/:id/settings", guildH.UpdateSettings)
		guildsG.POST("/:id/apply", guildH.Apply)
		guildsG.POST("/:id/applications/process", guildH.ProcessApplication)
		guildsG.POST("/:id/invitations", guildH.Invite)
		guildsG.POST("/:id/invitations/process", guildH.ProcessInvitation)
		guildsG.POST("/:id/leave", guildH.Leave)
		guildsG.DELETE("/:id/members/:pid", guildH.Kick)
		guildsG.PUT("/:id/members/:pid/promote", guildH.Promote)
		guildsG.PUT("/:id/members/:pid/demote", guildH.Demote)

		guildsG.POST("/:id/quests", activityH.StartQuest)
		guildsG.POST("/:id/quests/:qid/contribute", activityH.Contribute)
		guildsG.POST("/:id/raids", activityH.StartRaid)
		guildsG.POST("/:id/raids/:rid/join", activityH.JoinRaid)
		guildsG.PUT("/:id/raids/:rid/ready", activityH.SetReady)
		guildsG.POST("/:id/raids/:rid/begin", activityH.BeginRaid)
		guildsG.POST("/:id/raids/:rid/attack", activityH.Attack)
		guildsG.POST("/:id/bank/donate", activityH.Donate)
		guildsG.POST("/:id/rewards/daily", activityH.ClaimDaily)
		guildsG.POST("/:id/rewards/weekly", activityH.ClaimWeekly)

		adminG := api.Group("/admin")
		adminG.Use(mw.AdminAuth(d.Server.AdminKey))
		adminG.POST("/maintenance/daily", adminH.RunDailyMaintenance)
		adminG.POST("/maintenance/weekly", adminH.RunWeeklyMaintenance)
		adminG.POST("/leaderboard/refresh", adminH.RefreshLeaderboard)
		adminG.GET("/sweeps", adminH.ListSweeps)
	}
}

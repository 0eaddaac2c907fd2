package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/asakura-games/guildserver/activity"
	"github.com/asakura-games/guildserver/api/rest"
	"github.com/asakura-games/guildserver/cache"
	"github.com/asakura-games/guildserver/config"
	dbadapter "github.com/asakura-games/guildserver/db"
	"github.com/asakura-games/guildserver/maintenance"
	"github.com/asakura-games/guildserver/membership"
	mw "github.com/asakura-games/guildserver/middleware"
	"github.com/asakura-games/guildserver/model"
	"github.com/asakura-games/guildserver/notify"
	"github.com/asakura-games/guildserver/scheduler"
	"github.com/asakura-games/guildserver/search"
	"github.com/asakura-games/guildserver/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Event journal + dispatcher ----
	journal := notify.NewJournal(db, logger)
	defer journal.Stop(nil)
	gateway := notify.NewDispatcher(pubsub, journal, logger)

	// ---- Stores ----
	guilds := store.NewGuilds(db, logger)
	players := store.NewPlayers(db)

	// ---- Services ----
	memberSvc := membership.NewService(guilds, players, gateway, cfg.Guild, logger)
	activitySvc := activity.NewService(guilds, players, gateway, cfg.Guild, logger)
	maintSvc := maintenance.NewService(guilds, players, gateway, cfg.Guild, logger)
	searchSvc := search.NewService(guilds, c, logger)

	// ---- Periodic Maintenance Sweeps ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	serverID := cfg.Server.ServerID
	sched.Every("daily_maintenance", cfg.Guild.DailySweepInterval, func() {
		report, err := maintSvc.PerformDailyMaintenance(context.Background(), serverID)
		if err != nil {
			logger.Error("daily maintenance sweep failed", zap.Error(err))
			return
		}
		logger.Info("daily maintenance sweep",
			zap.Int("guilds", report.GuildsSwept),
			zap.Int("invitations_expired", report.InvitationsExpired),
			zap.Int("members_pruned", report.MembersPruned),
			zap.Int("leadership_transfers", report.LeadershipTransfers),
			zap.Int("guilds_dormant", report.GuildsDormant),
			zap.Int("errors", report.Errors))
	})
	sched.Every("weekly_maintenance", cfg.Guild.WeeklySweepInterval, func() {
		report, err := maintSvc.PerformWeeklyMaintenance(context.Background(), serverID)
		if err != nil {
			logger.Error("weekly maintenance sweep failed", zap.Error(err))
			return
		}
		logger.Info("weekly maintenance sweep",
			zap.Int("guilds", report.GuildsSwept),
			zap.Int("quests_expired", report.QuestsExpired),
			zap.Int("raids_failed", report.RaidsFailed),
			zap.Int("errors", report.Errors))
	})
	sched.Every("leaderboard_refresh", cfg.Guild.DailySweepInterval, func() {
		if err := searchSvc.RefreshLeaderboard(context.Background(), serverID); err != nil {
			logger.Error("leaderboard refresh failed", zap.Error(err))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	rest.RegisterRoutes(r, rest.Deps{
		DB:         db,
		Cache:      c,
		Security:   cfg.Security,
		Server:     cfg.Server,
		Membership: memberSvc,
		Activity:   activitySvc,
		Maint:      maintSvc,
		Search:     searchSvc,
		Sched:      sched,
		Logger:     logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("guild server listening", zap.String("addr", addr), zap.String("server_id", serverID))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

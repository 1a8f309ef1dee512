package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	apirest "github.com/questlogrpg/questlog/server/api/rest"
	"github.com/questlogrpg/questlog/server/audit"
	"github.com/questlogrpg/questlog/server/cache"
	"github.com/questlogrpg/questlog/server/config"
	dbadapter "github.com/questlogrpg/questlog/server/db"
	"github.com/questlogrpg/questlog/server/game/activity"
	"github.com/questlogrpg/questlog/server/game/character"
	"github.com/questlogrpg/questlog/server/game/quest"
	mw "github.com/questlogrpg/questlog/server/middleware"
	"github.com/questlogrpg/questlog/server/model"
	"github.com/questlogrpg/questlog/server/plugin/hook"
	"github.com/questlogrpg/questlog/server/scheduler"
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

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Services ----
	charSvc := character.NewService(db, c, logger)
	questSvc := quest.NewService(db, logger)
	actSvc := activity.NewService(db, charSvc, questSvc, logger)

	// ---- Hooks ----
	hooks := hook.NewHookCenter()
	actSvc.Hooks = hooks

	// Streak milestone badges.
	streakBadges := map[int]string{7: "WEEK_STREAK", 30: "MONTH_STREAK", 365: "YEAR_STREAK"}
	hooks.Register(hook.OnActivityComplete, 10, "streak_badges", func(ctx context.Context, _ string, data interface{}) (interface{}, error) {
		a, ok := data.(*model.Activity)
		if !ok {
			return data, nil
		}
		ch, err := charSvc.FindByID(ctx, a.CharacterID)
		if err != nil {
			return data, nil
		}
		if badge, ok := streakBadges[ch.CurrentStreak]; ok {
			if err := charSvc.GrantBadge(ctx, ch.ID, badge); err != nil {
				logger.Warn("badge grant failed", zap.Error(err))
			}
		}
		return data, nil
	})

	// ---- Periodic Scheduler Tasks ----
	sched.AddTicker("ranking_refresh", cfg.Game.RankingRefresh, func() {
		n, err := charSvc.RefreshRanking(context.Background(), cfg.Game.RankingTop)
		if err != nil {
			logger.Warn("ranking refresh failed", zap.Error(err))
			return
		}
		logger.Debug("ranking refreshed", zap.Int("characters", n))
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

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security, auditSvc)
	charH := apirest.NewCharacterHandler(charSvc)
	questH := apirest.NewQuestHandler(questSvc, charSvc)
	actH := apirest.NewActivityHandler(actSvc, auditSvc, cfg.Game)
	rankH := apirest.NewRankingHandler(db, c, logger)
	adminH := apirest.NewAdminHandler(db, charSvc, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/sign-up", authH.SignUp)
		authG.POST("/sign-in", authH.SignIn)
		authG.POST("/sign-out", mw.Auth(cfg.Security, c), authH.SignOut)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		charsG := api.Group("/characters")
		charsG.Use(mw.Auth(cfg.Security, c))
		charsG.POST("", charH.Create)
		charsG.GET("/me", charH.Me)
		charsG.DELETE("/me", charH.Delete)

		questsG := api.Group("/quests")
		questsG.Use(mw.Auth(cfg.Security, c))
		questsG.POST("", questH.Create)
		questsG.GET("", questH.List)
		questsG.GET("/:id", questH.Get)
		questsG.PATCH("/:id", questH.Update)
		questsG.POST("/:id/pause", questH.Pause)
		questsG.POST("/:id/unpause", questH.Unpause)
		questsG.DELETE("/:id", questH.Delete)

		actsG := api.Group("/activities")
		actsG.Use(mw.Auth(cfg.Security, c))
		actsG.GET("", actH.Timeline)
		actsG.POST("", actH.Create)
		actsG.POST("/:id/complete", actH.Complete)

		rankG := api.Group("/ranking")
		rankG.GET("/xp", rankH.TopXP)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Server.AdminAllowedIPs))
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/accounts/:id/ban", adminH.BanAccount)
		adminG.POST("/ranking/refresh", adminH.RefreshRanking)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picturegame-bot/config"
	"picturegame-bot/handlers"
	"picturegame-bot/models"
	"picturegame-bot/services"
	"picturegame-bot/utils"
	"picturegame-bot/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	if cfg.Reddit.Username == "" {
		log.Fatal("REDDIT_USERNAME environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := db.AutoMigrate(
		&models.Win{},
		&models.PointAward{},
		&models.LegacyImport{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	var cache services.ReplyCache = services.NewMemoryReplyCache()
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️  Redis unavailable at %s, using in-process reply cache: %v", cfg.Redis.Address, err)
		} else {
			cache = services.NewRedisReplyCache(rdb)
			defer rdb.Close()
		}
	}

	var archive services.Archive
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Archive(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archive = r2
	}

	reddit := services.NewRedditClient(ctx, cfg, cache, logger)
	search := services.NewImageSearchService(cfg.ImageSearch, logger)
	ledger := services.NewLedgerService(db)
	rules := services.NewScoreRules(cfg.Points)
	scores := services.NewScoreManager(rules, ledger, reddit, logger)
	checker := services.NewWinChecker(reddit, scores, cfg, logger)
	processor := services.NewWinProcessor(reddit, search, scores, cfg, logger)
	commands := services.NewModCommands(reddit, rules, scores, processor, cfg, logger)
	leaderboard := services.NewLeaderboardService(ledger, reddit, archive, logger)

	commentScanner := workers.NewCommentScanner(reddit, checker, processor, reddit.Username(), logger)
	reportScanner := workers.NewReportScanner(reddit, commands, logger)

	sched, err := services.NewScheduler(logger)
	if err != nil {
		log.Fatal(err)
	}
	tasks := []services.Task{
		{Name: "comment-scan", Interval: cfg.ScanInterval, Run: commentScanner.Scan},
		{Name: "report-scan", Interval: cfg.ReportInterval, Run: reportScanner.Scan},
		{Name: "monthly-leaderboard", Cron: cfg.LeaderboardCron, Run: func(ctx context.Context) error {
			return leaderboard.PostMonthly(ctx, time.Now())
		}},
	}
	for _, t := range tasks {
		if err := sched.Add(ctx, t); err != nil {
			log.Fatal(err)
		}
	}
	sched.Start()

	var app *fiber.App
	if cfg.APIToken != "" {
		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		handlers.SetupScoreRoutes(app, ledger, leaderboard, cfg.APIToken)
		go func() {
			if err := app.Listen(cfg.APIAddr); err != nil {
				log.Printf("Server error: %v", err)
			}
		}()
		log.Printf("✅ Stats API running on %s", cfg.APIAddr)
	} else {
		log.Println("⚠️  API_TOKEN not set, stats API disabled")
	}

	log.Printf("✅ Watching /r/%s as /u/%s (read-only: %t)", cfg.Subreddit, reddit.Username(), cfg.ReadOnly)
	log.Printf("✅ Comment scan every %s, report scan every %s", cfg.ScanInterval, cfg.ReportInterval)

	<-ctx.Done()
	log.Println("Shutting down...")
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if app != nil {
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}
}

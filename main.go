package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"eduwave-game-service/handlers"
	"eduwave-game-service/middleware"
	"eduwave-game-service/models"
	"eduwave-game-service/services"
	"eduwave-game-service/utils"
	"eduwave-game-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "eduwave-game-service",
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Name, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// R2 is optional: snapshot archival is skipped when not configured.
	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		log.Println("⚠️  R2_BUCKET_NAME not set — leaderboard snapshot archival disabled")
	}

	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey; the duel-key retry loop depends on it.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.GameUser{},
		&models.DuelSession{},
		&models.UserGameStats{},
		&models.UserBadge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	gameServiceToken := os.Getenv("GAME_SERVICE_TOKEN")
	if gameServiceToken == "" {
		log.Fatal("GAME_SERVICE_TOKEN environment variable not set")
	}

	notifier := services.NewNotificationClient(os.Getenv("NOTIFY_SERVICE_URL"), gameServiceToken)
	forumClient := services.NewForumClient(os.Getenv("FORUM_SERVICE_URL"), gameServiceToken)
	courseClient := services.NewCourseClient(os.Getenv("COURSE_SERVICE_URL"), gameServiceToken)

	badgeEngine := services.NewBadgeEngine(db, forumClient, courseClient, notifier)
	pointsLedger := services.NewPointsLedger(db, badgeEngine)
	rateLimits := services.NewRateLimitTracker()
	duelService := services.NewDuelService(db, rateLimits, pointsLedger, badgeEngine)
	leaderboardService := services.NewLeaderboardService(db, badgeEngine)
	engagementService := services.NewEngagementService(db, pointsLedger, badgeEngine)

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", gameServiceToken)
	syncWorker.Start(ctx)

	premiumSyncClient := workers.NewPremiumSyncClient(db)
	go workers.PollSubscriptions(ctx, premiumSyncClient, 30*time.Second)

	scheduler := services.NewScheduler(db, leaderboardService)
	scheduler.Start()

	// ✅ Setup routes — gateway auth enforced globally above
	handlers.SetupDuelRoutes(app, duelService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService, badgeEngine)
	handlers.SetupEventRoutes(app, engagementService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ User Sync Worker running")
	log.Println("✅ Premium subscription polling running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

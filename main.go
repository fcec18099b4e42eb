package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"teamline/server/internal/broadcast"
	"teamline/server/internal/chat"
	"teamline/server/internal/config"
	"teamline/server/internal/database"
	"teamline/server/internal/directory"
	"teamline/server/internal/handlers"
	"teamline/server/internal/logger"
	"teamline/server/internal/routes"
	"teamline/server/internal/store/postgres"
	"teamline/server/internal/utils"
	ws "teamline/server/internal/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	utils.InitJWT(cfg.JWTSecret)

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	zlog.Info("Database connected")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zlog.Fatal("Invalid REDIS_URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()
	zlog.Info("Redis connected")

	// Stores
	directStore := postgres.NewDirectMessageStore(pool)
	groupMessageStore := postgres.NewGroupMessageStore(pool)
	groupStore := postgres.NewGroupStore(pool)

	// Fan-out pipeline
	dir := directory.NewClient(cfg.DirectoryURL, cfg.DirectoryTimeout, zlog)
	publisher := broadcast.NewRedisPublisher(rdb)
	bcast := broadcast.New(publisher, dir, zlog, broadcast.Config{
		Workers:     cfg.BroadcastWorkers,
		QueueSize:   cfg.BroadcastQueueSize,
		TaskTimeout: cfg.BroadcastTaskTimeout,
	})
	defer bcast.Close()

	// Services
	directSvc := chat.NewDirectService(directStore, bcast, zlog)
	groupSvc := chat.NewGroupService(groupStore, groupMessageStore, bcast, zlog)

	// Live delivery
	hub := ws.NewHub(rdb, groupSvc, zlog)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Teamline API v1.0",
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Direct:    handlers.NewDirectHandler(directSvc),
		Group:     handlers.NewGroupHandler(groupSvc),
		WebSocket: handlers.NewWebSocketHandler(hub, zlog),
		DevAuth:   !cfg.IsProduction(),
	})

	zlog.Info("Server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("Server stopped", zap.Error(err))
	}
}

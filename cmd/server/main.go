package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/wavecanvas/api/internal/audiosource"
	"github.com/wavecanvas/api/internal/client"
	"github.com/wavecanvas/api/internal/config"
	"github.com/wavecanvas/api/internal/handler"
	"github.com/wavecanvas/api/internal/limiter"
	"github.com/wavecanvas/api/internal/model"
	"github.com/wavecanvas/api/internal/render"
	"github.com/wavecanvas/api/internal/service"
	"github.com/wavecanvas/api/internal/store"
	"github.com/wavecanvas/api/internal/worker"
	ws "github.com/wavecanvas/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Job record store: Redis when reachable, in-memory fallback in
	// development so the service runs without infrastructure.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	var jobStore store.Store = store.NewRedisStore(redisClient)
	redisUp := true
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		if cfg.Server.Env != "development" {
			log.Fatalf("Redis not available: %v", err)
		}
		log.Printf("Warning: Redis not available, using in-memory job store: %v", err)
		jobStore = store.NewMemoryStore()
		redisUp = false
	}

	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	inspector := asynq.NewInspector(redisOpt)

	validate := validator.New()

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Pipeline components
	gate := limiter.New(cfg.Jobs.MaxConcurrent)
	resolver := audiosource.NewDirResolver(cfg.Audio.Dir)
	renderer := render.NewRenderer(cfg.Renderer, cfg.Audio.Dir)
	generators := func(provider string) client.ImageGenerator {
		return client.NewImageGenerator(&cfg.Image, provider)
	}

	renderWorker := worker.NewRenderWorker(jobStore, resolver, renderer, gate, hub, cfg.Audio.FPS)
	imageWorker := worker.NewImageWorker(jobStore, resolver, generators, gate, hub)

	// Scheduling backends per job kind. Distributed scheduling needs the
	// broker, so it degrades to local when Redis is down.
	localBackend := worker.NewLocalBackend(renderWorker, imageWorker)
	asynqBackend := worker.NewAsynqBackend(asynqClient, inspector)

	backends := map[model.JobKind]worker.Backend{
		model.KindVisualizationRender: selectBackend(cfg.Jobs.RenderBackend, redisUp, localBackend, asynqBackend),
		model.KindImageGeneration:     selectBackend(cfg.Jobs.ImageBackend, redisUp, localBackend, asynqBackend),
	}

	jobService := service.NewJobService(jobStore, backends, renderer, cfg.Image.Provider)
	jobHandler := handler.NewJobHandler(jobService, validate)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check
	openaiReady := client.NewImageGenerator(&cfg.Image, "openai").IsConfigured()
	googleReady := client.NewImageGenerator(&cfg.Image, "google").IsConfigured()
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":  redisUp,
				"openai": openaiReady,
				"google": googleReady,
			},
		})
	})

	// API routes
	jobHandler.Register(app.Group("/api"))

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start the Asynq worker server only when the broker is reachable
	if redisUp {
		go startWorkerServer(redisOpt, renderWorker, imageWorker)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func selectBackend(name string, redisUp bool, local *worker.LocalBackend, distributed *worker.AsynqBackend) worker.Backend {
	if name == "asynq" && redisUp {
		return distributed
	}
	if name == "asynq" {
		log.Printf("Warning: asynq backend requested but Redis is down, falling back to local scheduling")
	}
	return local
}

func startWorkerServer(redisOpt asynq.RedisClientOpt, renderWorker *worker.RenderWorker, imageWorker *worker.ImageWorker) {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"render": 6,
			"image":  4,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypeRender, renderWorker.ProcessTask)
	mux.HandleFunc(worker.TaskTypeImage, imageWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mydia/mydia/internal/api"
	"github.com/mydia/mydia/internal/auth"
	"github.com/mydia/mydia/internal/config"
	"github.com/mydia/mydia/internal/db"
	"github.com/mydia/mydia/internal/jobs"
	"github.com/mydia/mydia/internal/probe"
	"github.com/mydia/mydia/internal/repository"
	"github.com/mydia/mydia/internal/scheduler"
	"github.com/mydia/mydia/internal/stream"
	"github.com/mydia/mydia/internal/version"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	ver := version.Load()
	log.Printf("Mydia %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	fileRepo := repository.NewFileRepository(database.DB)
	prober := probe.New(cfg.FFprobePath)
	probeCache := probe.NewCache(rdb, cfg.ProbeCacheTTL)

	supervisor := stream.NewFFmpegSupervisor(cfg.FFmpegPath)
	manager := stream.NewManager(supervisor, cfg.MaxSessions)

	queue := jobs.NewQueue(cfg.RedisAddr)
	queue.Handle(jobs.TaskProbeFile, jobs.NewProbeHandler(fileRepo, prober, probeCache))
	queue.Start()
	defer queue.Shutdown()

	authService := auth.New(cfg.JWTSecret, cfg.MediaTokenTTL)

	srv := api.NewServer(cfg, fileRepo, manager, authService, prober, probeCache, queue)

	sched := scheduler.New(manager, fileRepo, queue, cfg.SessionMaxAge, cfg.ProbeBatchSize)
	sched.Start()
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming responses have no bounded duration
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-rag/internal/ai"
	"pdf-rag/internal/api"
	"pdf-rag/internal/config"
	"pdf-rag/internal/db"
	"pdf-rag/internal/jobsearch"
	"pdf-rag/internal/notify"
	"pdf-rag/internal/repository"
	"pdf-rag/internal/services"
	"pdf-rag/internal/storage"
	"pdf-rag/internal/telemetry"
)

func main() {
	log.Println("🚀 Starting PDF RAG service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Tracing first so every later operation is covered.
	jaegerShutdown, err := telemetry.InitJaeger("pdf-rag", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	database, err := db.NewGorm(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	fileStore, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("❌ Failed to prepare upload dir: %v", err)
	}

	// Provider adapters
	cohereClient := ai.NewCohereClient(cfg.CohereAPIKey, cfg.CohereURL)
	groqClient := ai.NewGroqClient(cfg.GroqAPIKey, cfg.GroqURL)
	jobClient := jobsearch.NewClient(cfg.JobSearchURL)
	log.Println("✓ Provider clients initialized")

	// Repositories
	userRepo := repository.NewUserRepository(database.DB)
	docRepo := repository.NewDocumentRepository(database.DB)
	linkRepo := repository.NewLinkRepository(database.DB)

	// WebSocket status hub
	hub := notify.NewHub()
	hub.Start()
	wsHandler := notify.NewWebSocketHandler(hub)

	// Embedding lifecycle worker pool
	embService := services.NewEmbeddingService(
		cohereClient,
		docRepo,
		hub,
		cfg.EmbeddingWorkers,
		cfg.EmbeddingQueueSize,
	)
	embService.Start()

	// Core services
	ragService := services.NewRAGService(cohereClient, groqClient, docRepo)
	jobService := services.NewJobMatchService(cohereClient, groqClient, docRepo, jobClient)

	handler := api.NewHandler(
		userRepo,
		docRepo,
		linkRepo,
		fileStore,
		embService,
		ragService,
		jobService,
		jobClient,
		cfg.MaxFileSize,
	)

	router := api.SetupRoutes(handler, wsHandler)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Optional periodic digest; zero interval disables it.
	digestDone := make(chan struct{})
	if cfg.DigestInterval > 0 {
		go runDigestLoop(jobService, cfg.DigestInterval, digestDone)
	}

	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n🛑 Shutting down server...")

	close(digestDone)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// Workers drain after the server stops producing jobs, then the hub
	// closes its connections.
	embService.Shutdown()
	hub.Shutdown()

	log.Println("✓ Server shutdown complete")
}

// runDigestLoop fires the weekly job digest on a fixed interval until done
// is closed.
func runDigestLoop(jobService *services.JobMatchService, interval time.Duration, done <-chan struct{}) {
	log.Printf("🔄 Job digest scheduled every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			report, err := jobService.WeeklyDigest(ctx)
			cancel()
			if err != nil {
				log.Printf("⚠️  Job digest run failed: %v", err)
				continue
			}
			log.Printf("✓ Job digest: %d users processed, %d failed",
				report.UsersProcessed, report.UsersFailed)
		}
	}
}

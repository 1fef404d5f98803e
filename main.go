package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caption-stream/backend/internal/api"
	"github.com/caption-stream/backend/internal/api/handlers"
	"github.com/caption-stream/backend/internal/auth"
	"github.com/caption-stream/backend/internal/caption"
	"github.com/caption-stream/backend/internal/config"
	"github.com/caption-stream/backend/internal/db"
	"github.com/caption-stream/backend/internal/job"
	"github.com/caption-stream/backend/internal/provider"
)

func main() {
	cfg := config.Load()

	// Ensure data directory exists
	os.MkdirAll(cfg.DataPath, 0755)

	// Initialize database
	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Ensure admin user exists
	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Admin user ensured: %s", cfg.AdminUsername)

	// Settings-backed accessors, re-read on every use so changes apply
	// without a restart
	setting := func(key, fallback string) func() string {
		return func() string { return database.GetSetting(key, fallback) }
	}
	targetLang := setting("target_lang", cfg.TargetLang)
	enabled := func() bool {
		return database.GetSetting("translation_enabled", "true") != "false"
	}

	// Translation providers behind a settings-selected switch
	selector := provider.NewSelector(
		setting("translation_provider", "gemini"),
		provider.NewDeepL(setting("deepl_api_key", "")),
		provider.NewGemini(setting("gemini_api_key", ""), setting("gemini_model", "")),
		provider.NewOpenAI(setting("openai_api_key", ""), setting("openai_base_url", ""), setting("openai_model", "")),
	)
	transport := caption.NewRetryingTransport(selector)

	// Translation engine with SSE notifications and write-through cache
	events := handlers.NewEventHub()
	store := caption.NewStore(events.NotifyResolved)
	engine := caption.NewEngine(store, transport, database, enabled, targetLang, caption.Config{
		SourceLang: cfg.SourceLang,
	})

	// Job queue for whole-file translations
	jobQueue := job.NewJobQueue(database.DB())
	defer jobQueue.Stop()
	captionService := caption.NewService(engine)
	jobQueue.RegisterHandler(job.JobTranslateAll, captionService.HandleJob)

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Create router
	router := api.NewRouter(api.Deps{
		Database:   database,
		JWT:        jwtService,
		Config:     cfg,
		Engine:     engine,
		Queue:      jobQueue,
		Events:     events,
		TargetLang: targetLang,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Default target language: %s", cfg.TargetLang)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		jobQueue.Stop()
		database.Close()
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

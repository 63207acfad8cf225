package main

import (
	"aetherscribe/internal/cache"
	"aetherscribe/internal/config"
	"aetherscribe/internal/database"
	"aetherscribe/internal/engine"
	"aetherscribe/internal/handlers"
	"aetherscribe/internal/jobs"
	"aetherscribe/internal/logging"
	"aetherscribe/internal/services"
	"aetherscribe/internal/storage"
	"aetherscribe/internal/templates"
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting AetherScribe Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Data: %s)", cfg.Port, cfg.DataDir)

	// Initialize the sqlite store for conversation and stats snapshots
	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	log.Println("✅ Database initialized")

	store := storage.NewStore(db)

	prefStore, err := storage.NewPreferenceStore(cfg.PreferencesPath())
	if err != nil {
		log.Fatalf("❌ Failed to open preference store: %v", err)
	}

	// Load note style and specialty templates (built-ins + optional overrides)
	templateSet, err := templates.Load(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("❌ Failed to load templates: %v", err)
	}

	// Inference engine client
	engineClient := engine.NewClient(cfg.EngineBaseURL, cfg.EngineAPIKey, cfg.EngineModel)
	log.Printf("🧠 Engine configured (model: %s, base: %s)", cfg.EngineModel, cfg.EngineBaseURL)

	// Prometheus collectors for the managers
	metrics := services.NewMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Initialize services
	promptBuilder := services.NewPromptBuilder(templateSet)
	conversationService := services.NewConversationService(engineClient, store, promptBuilder, metrics)
	statsService := services.NewStatsService(context.Background(), store)
	noteService := services.NewScribeNoteService(conversationService, engineClient, templateSet, metrics)
	noteService.Init()

	// Restore the previous conversation if one was persisted
	if snapshot, err := conversationService.LoadFromStorage(context.Background()); err != nil {
		log.Printf("⚠️  Failed to load saved conversation: %v", err)
	} else if snapshot != nil {
		conversationService.RestoreFromData(snapshot)
	}

	// Asset gateway: disk cache namespaces + strategy engine
	manifest, err := cache.LoadManifest(cfg.ShellManifestPath)
	if err != nil {
		log.Printf("⚠️  Shell manifest unavailable (%v), using built-in manifest", err)
		manifest = cache.DefaultManifest()
	}

	diskstore, err := cache.NewDiskstore(cfg.CacheDir())
	if err != nil {
		log.Fatalf("❌ Failed to create cache store: %v", err)
	}

	gateway, err := cache.NewGateway(diskstore, manifest, cfg.AppOriginURL, metrics)
	if err != nil {
		log.Fatalf("❌ Failed to create asset gateway: %v", err)
	}

	// Drop cache namespaces left behind by previous versions, then precache
	// the app shell. A failed install is non-fatal: the gateway still serves
	// cache-first from whatever shell cache survived.
	if err := gateway.Activate(); err != nil {
		log.Printf("⚠️  Cache activation failed: %v", err)
	}
	if err := gateway.Install(context.Background()); err != nil {
		log.Printf("⚠️  App shell install failed: %v", err)
	}

	// Hot-reload the shell cache when the manifest file changes
	if cfg.ShellManifestPath != "" {
		go watchShellManifest(cfg.ShellManifestPath, gateway)
	}

	// Background jobs: conversation autosave + CDN cache retention sweep
	scheduler, err := jobs.New(
		conversationService,
		diskstore,
		time.Duration(cfg.AutosaveSeconds)*time.Second,
		time.Duration(cfg.CacheRetentionDays)*24*time.Hour,
	)
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	scheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AetherScribe v1.0",
		ReadTimeout:  300 * time.Second, // local models can take minutes to cold start
		WriteTimeout: 300 * time.Second,
		BodyLimit:    10 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("aetherscribe")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:8080"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Use("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(statsService, engineClient.Model())
	conversationHandler := handlers.NewConversationHandler(conversationService, statsService, noteService, prefStore)
	statsHandler := handlers.NewStatsHandler(statsService, prefStore)
	notesHandler := handlers.NewNotesHandler(noteService, prefStore)
	preferencesHandler := handlers.NewPreferencesHandler(prefStore)
	assetsHandler := handlers.NewAssetsHandler(gateway, cfg.AppOriginURL)
	progressHandler := handlers.NewModelProgressHandler(engineClient)

	// Routes
	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	conversation := api.Group("/conversation")
	conversation.Post("/start", conversationHandler.Start)
	conversation.Post("/message", conversationHandler.Message)
	conversation.Get("/", conversationHandler.History)
	conversation.Post("/save", conversationHandler.Save)
	conversation.Get("/snapshot", conversationHandler.Snapshot)
	conversation.Post("/restore", conversationHandler.Restore)
	conversation.Post("/reset", conversationHandler.Reset)
	conversation.Get("/system-prompt", conversationHandler.SystemPrompt)

	api.Post("/session/start", statsHandler.StartSession)
	api.Post("/session/end", statsHandler.EndSession)
	api.Get("/stats", statsHandler.Summary)
	api.Get("/stats/export", statsHandler.Export)
	api.Delete("/stats", statsHandler.Clear)

	notes := api.Group("/notes")
	notes.Post("/generate", notesHandler.Generate)
	notes.Post("/refine", notesHandler.Refine)
	notes.Get("/", notesHandler.History)
	notes.Get("/current", notesHandler.Current)

	preferences := api.Group("/preferences")
	preferences.Get("/", preferencesHandler.Get)
	preferences.Put("/", preferencesHandler.Update)
	preferences.Post("/reset", preferencesHandler.Reset)

	api.Post("/gateway/install", assetsHandler.Install)
	app.Get("/gateway/*", assetsHandler.Fetch)

	// WebSocket upgrade gate + model pull progress stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/model-progress", websocket.New(progressHandler.Stream))

	log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("⏬ Model progress: ws://localhost:%s/ws/model-progress", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		// Stop background jobs
		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️  Error stopping scheduler: %v", err)
		}

		// Flush the dirty conversation state and in-flight cache writes
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if conversationService.Dirty() {
			if err := conversationService.SaveToStorage(ctx); err != nil {
				log.Printf("⚠️  Final conversation save failed: %v", err)
			}
		}
		cancel()
		gateway.Flush()

		// Shutdown Fiber
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// watchShellManifest reinstalls the app shell when the manifest file changes.
func watchShellManifest(path string, gateway *cache.Gateway) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create manifest watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		log.Printf("⚠️  Failed to resolve manifest path %s: %v", path, err)
		watcher.Close()
		return
	}

	// Watch the directory containing the file (more reliable than watching
	// the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", path)

	// Debounce timer to avoid multiple reinstalls for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					log.Printf("🔄 Detected changes in %s, reinstalling app shell...", path)

					manifest, err := cache.LoadManifest(path)
					if err != nil {
						log.Printf("❌ Failed to reload manifest: %v", err)
						return
					}
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
					defer cancel()
					if err := gateway.Reinstall(ctx, manifest); err != nil {
						log.Printf("❌ App shell reinstall failed: %v", err)
						return
					}
					log.Printf("✅ App shell reinstalled from %s", path)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  Manifest watcher error: %v", err)
		}
	}
}

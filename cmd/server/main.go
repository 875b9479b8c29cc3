package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/moonshine-ai/MoonshineNoteTaker/internal/cleanup"
	"github.com/moonshine-ai/MoonshineNoteTaker/internal/document"
	"github.com/moonshine-ai/MoonshineNoteTaker/internal/handlers"
	"github.com/moonshine-ai/MoonshineNoteTaker/internal/middleware"
	"github.com/moonshine-ai/MoonshineNoteTaker/internal/storage"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Audio struct {
		SampleRate  int `yaml:"sample_rate"`
		FrameLength int `yaml:"frame_length"`
	} `yaml:"audio"`

	Transcript struct {
		SuppressEcho     bool    `yaml:"suppress_echo"`
		OverlapThreshold float64 `yaml:"overlap_threshold"`
		EventBuffer      int     `yaml:"event_buffer"`
	} `yaml:"transcript"`

	Storage struct {
		RecordingsDir string `yaml:"recordings_dir"`
		Database      string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		Enabled         bool `yaml:"enabled"`
		IntervalMinutes int  `yaml:"interval_minutes"`
		MaxAgeHours     int  `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxBodySizeMB int `yaml:"max_body_size_mb"`
	} `yaml:"limits"`
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	config, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cleanup.EnsureDirExists(config.Storage.RecordingsDir); err != nil {
		log.Fatalf("Failed to create recordings directory: %v", err)
	}

	log.Info("Initializing components...")

	store, err := storage.Open(config.Storage.Database, config.Storage.RecordingsDir)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	doc := document.New(document.Config{
		SampleRate:       config.Audio.SampleRate,
		SuppressEcho:     config.Transcript.SuppressEcho,
		OverlapThreshold: config.Transcript.OverlapThreshold,
		EventBuffer:      config.Transcript.EventBuffer,
	}, log)

	// Drain loop: all transcript mutation happens on this goroutine.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go doc.Run(ctx)

	var retention *cleanup.Scheduler
	if config.Cleanup.Enabled {
		retention = cleanup.NewScheduler(
			config.Storage.RecordingsDir,
			config.Cleanup.IntervalMinutes,
			config.Cleanup.MaxAgeHours,
			log,
		)
		retention.Start()
		defer retention.Stop()
	}

	app := fiber.New(fiber.Config{
		BodyLimit: config.Limits.MaxBodySizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	captureHandler := handlers.NewCaptureHandler(doc, log)
	playbackHandler := handlers.NewPlaybackHandler(doc, config.Audio.FrameLength, config.Audio.SampleRate, log)
	transcriptHandler := handlers.NewTranscriptHandler(doc, log)
	documentsHandler := handlers.NewDocumentsHandler(doc, store, log)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/capture/start", captureHandler.Start)
	app.Post("/capture/stop", captureHandler.Stop)
	app.Get("/ws/capture", websocket.New(captureHandler.Stream))

	app.Post("/transcript/events", transcriptHandler.Ingest)
	app.Get("/transcript", transcriptHandler.Get)

	app.Post("/playback/range", playbackHandler.SetRange)
	app.Post("/playback/reset", playbackHandler.Reset)
	app.Get("/playback/status", playbackHandler.Status)
	app.Get("/ws/playback", websocket.New(playbackHandler.Stream))

	app.Post("/documents", documentsHandler.Save)
	app.Get("/documents", documentsHandler.List)
	app.Post("/documents/:id/open", documentsHandler.Open)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Infof("Server starting on %s", addr)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down gracefully...")
		cancel()
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig loads configuration from a YAML file and applies defaults.
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Audio.SampleRate == 0 {
		config.Audio.SampleRate = 48000
	}
	if config.Audio.FrameLength == 0 {
		config.Audio.FrameLength = 1024
	}
	if config.Limits.MaxBodySizeMB == 0 {
		config.Limits.MaxBodySizeMB = 32
	}
	if config.Storage.RecordingsDir == "" {
		config.Storage.RecordingsDir = "recordings"
	}
	if config.Storage.Database == "" {
		config.Storage.Database = "notetaker.db"
	}

	return &config, nil
}

package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/coords-visualizer/backend/internal/api"
	"github.com/coords-visualizer/backend/internal/config"
	"github.com/coords-visualizer/backend/internal/models"
	"github.com/coords-visualizer/backend/internal/parser"
	"github.com/coords-visualizer/backend/internal/session"
	"github.com/coords-visualizer/backend/internal/storage"
	"github.com/coords-visualizer/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "CoordsDumpConverter.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}
	styleStore, err := storage.NewLocalStore(cfg.Storage.StylesDirectory)
	if err != nil {
		fmt.Printf("Failed to initialize style storage: %v\n", err)
		os.Exit(1)
	}

	// Default style, optionally replaced from the configured YAML file
	props := models.DefaultShapeProperties
	if cfg.Conversion.StyleFile != "" {
		props, err = parser.ParseStyle(cfg.Conversion.StyleFile)
		if err != nil {
			fmt.Printf("Failed to load style file %s: %v\n", cfg.Conversion.StyleFile, err)
			os.Exit(1)
		}
		fmt.Printf("Loaded style from %s\n", cfg.Conversion.StyleFile)
	}

	sessionMgr := session.NewManager(session.Settings{
		Options: parser.Options{
			Strict:    cfg.Conversion.Strict,
			RawTokens: cfg.Conversion.RawTokens,
		},
		ParserName:     cfg.Conversion.Parser,
		Properties:     props,
		DropDegenerate: cfg.Conversion.DropDegenerate,
		MaxSessions:    cfg.Conversion.MaxSessions,
	})
	sessionMgr.SetStatusRecorder(fileStore)

	maxDecompressed := int64(cfg.Advanced.MaxDecompressedSizeMB) * 1024 * 1024
	uploadMgr := upload.NewManager(fileStore, maxDecompressed)

	// Start background session cleanup
	cleanupInterval := time.Duration(cfg.Conversion.CleanupIntervalMinutes) * time.Minute
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		maxAge := time.Duration(cfg.Conversion.SessionTimeoutMinutes) * time.Minute
		for range ticker.C {
			sessionMgr.CleanupOldSessions(maxAge)
			uploadMgr.CleanupOldJobs(maxAge)
		}
	}()

	handlers := api.NewHandlers(&api.Dependencies{
		Store:               fileStore,
		StyleStore:          styleStore,
		SessionMgr:          sessionMgr,
		UploadMgr:           uploadMgr,
		Version:             Version,
		AllowedFileTypes:    cfg.Security.AllowedFileTypes,
		WSMaxMessageSize:    int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024,
		MaxDecompressedSize: maxDecompressed,
	})

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, cfg)
	api.RegisterRoutes(e, handlers, api.RouteOptions{
		AllowFileDeletion: cfg.Security.AllowFileDeletion,
	})

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	parserName := cfg.Conversion.Parser
	if parserName == "" {
		parserName = "auto-detect"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Coords Dump Converter Server                    ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Parser:     %-45s║\n", parserName)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	e.Logger.Fatal(e.StartServer(s))
}

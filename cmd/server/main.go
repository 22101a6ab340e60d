package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pano-hotspots/backend/internal/api"
	"github.com/pano-hotspots/backend/internal/config"
	"github.com/pano-hotspots/backend/internal/metrics"
	"github.com/pano-hotspots/backend/internal/overlay"
	"github.com/pano-hotspots/backend/internal/session"
	"github.com/pano-hotspots/backend/internal/source"
	"github.com/pano-hotspots/backend/internal/web"
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
	configPath := filepath.Join(exeDir, "PanoramaHotspots.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := log.New("pano")
	logger.SetLevel(cfg.LogLevel())
	logger.SetHeader("${time_rfc3339} ${level} ${prefix}")

	// Check if running in embedded mode (frontend built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	// Panorama source: remote API when configured, seed file otherwise
	var src source.PanoramaSource
	dataDesc := cfg.Data.RemoteURL
	if cfg.Data.RemoteURL != "" {
		src = source.NewHTTPSource(cfg.Data.RemoteURL, cfg.RequestTimeout())
	} else {
		fileSrc, err := source.NewFileSource(cfg.Data.SeedFile)
		if err != nil {
			fmt.Printf("Failed to load panorama seed: %v\n", err)
			os.Exit(1)
		}
		src = fileSrc
		dataDesc = cfg.Data.SeedFile
		if dataDesc == "" {
			dataDesc = "(embedded seed)"
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewRecorder(registry)

	// Initialize session manager
	sessionMgr := session.NewManager(src, session.Options{
		MaxSessions: cfg.Sessions.MaxSessions,
		Viewer: session.ViewerOptions{
			Defaults: overlay.Defaults{
				HFOV:            cfg.Viewer.HFOV,
				MinHFOV:         cfg.Viewer.MinHFOV,
				MaxHFOV:         cfg.Viewer.MaxHFOV,
				AutoRotateSpeed: cfg.Viewer.AutoRotateSpeed,
			},
			AutoLoad:          cfg.Viewer.AutoLoad,
			ShowControls:      cfg.Viewer.ShowControls,
			MouseZoom:         cfg.Viewer.MouseZoom,
			InitialAutoRotate: cfg.Viewer.InitialAutoRotate,
		},
		Logger:  logger,
		Metrics: rec,
		OnHotspotViewed: func(sessionID string, ev overlay.HotspotViewed) {
			logger.Debugf("[Telemetry] session=%s panorama=%d hotspot=%s", sessionID, ev.PanoramaID, ev.HotspotID)
		},
	})

	// Probe the source once so a misconfigured backend shows up at startup
	probeCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	if list, err := src.GetAllPanoramas(probeCtx); err != nil {
		logger.Warnf("panorama source not reachable: %v", err)
	} else {
		logger.Infof("panorama source ready with %d panoramas", len(list))
	}
	cancel()

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Sessions.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sessionMgr.CleanupOldSessions(time.Duration(cfg.Sessions.SessionTimeoutMinutes) * time.Minute)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(cfg.LogLevel())

	api.ExposeErrorDetails = cfg.LogLevel() == log.DEBUG
	api.SetupMiddleware(e, api.MiddlewareOptions{
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   api.ParseOrigins(cfg.Server.AllowOrigins),
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		BodyLimit:      cfg.Server.BodyLimit,
		RequestTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
	})

	handlers := api.NewHandlers(&api.Dependencies{
		Source:         src,
		SessionMgr:     sessionMgr,
		Logger:         logger,
		MaxMessageSize: int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024,
		Version:        Version,
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)
	if cfg.Advanced.EnableMetrics {
		api.RegisterMetricsRoute(e, registry)
	}

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded viewer from binary")
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	mode := "API only"
	if embeddedMode {
		mode = "Embedded viewer"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Panorama Hotspots Server                        ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data:      %-46s║\n", dataDesc)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}

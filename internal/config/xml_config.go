// Package config provides XML-based configuration management for the hotspot server.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"PanoramaHotspots"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Viewer defaults applied to every overlay
	Viewer ViewerConfig `xml:"Viewer"`

	// Panorama data source
	Data DataConfig `xml:"Data"`

	// Session lifecycle
	Sessions SessionsConfig `xml:"Sessions"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// ViewerConfig contains the panorama viewer defaults
type ViewerConfig struct {
	Projection        string  `xml:"Projection"`
	HFOV              float64 `xml:"HFOV"`
	MinHFOV           float64 `xml:"MinHFOV"`
	MaxHFOV           float64 `xml:"MaxHFOV"`
	AutoRotateSpeed   float64 `xml:"AutoRotateSpeed"`
	AutoLoad          bool    `xml:"AutoLoad"`
	ShowControls      bool    `xml:"ShowControls"`
	MouseZoom         bool    `xml:"MouseZoom"`
	InitialAutoRotate bool    `xml:"InitialAutoRotate"`
}

// DataConfig selects where panoramas are loaded from
type DataConfig struct {
	SeedFile              string `xml:"SeedFile"`
	RemoteURL             string `xml:"RemoteURL"`
	RequestTimeoutSeconds int    `xml:"RequestTimeoutSeconds"`
}

// SessionsConfig contains overlay session settings
type SessionsConfig struct {
	SessionTimeoutMinutes  int `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int `xml:"CleanupIntervalMinutes"`
	MaxSessions            int `xml:"MaxSessions"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	EnableMetrics           bool   `xml:"EnableMetrics"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "1M",
		},
		Viewer: ViewerConfig{
			Projection:        "equirectangular",
			HFOV:              100,
			MinHFOV:           50,
			MaxHFOV:           120,
			AutoRotateSpeed:   -8,
			AutoLoad:          true,
			ShowControls:      true,
			MouseZoom:         true,
			InitialAutoRotate: false,
		},
		Data: DataConfig{
			SeedFile:              "",
			RemoteURL:             "",
			RequestTimeoutSeconds: 10,
		},
		Sessions: SessionsConfig{
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			MaxSessions:            10,
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			EnableRequestLogging:    true,
			EnableMetrics:           true,
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Panorama Hotspots Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the viewer projection and field-of-view range
func (c *AppConfig) Validate() error {
	v := c.Viewer
	if v.Projection != "" && v.Projection != "equirectangular" {
		return fmt.Errorf("unsupported viewer projection %q", v.Projection)
	}
	if v.MinHFOV <= 0 || v.MaxHFOV < v.MinHFOV {
		return fmt.Errorf("invalid viewer field of view range [%v, %v]", v.MinHFOV, v.MaxHFOV)
	}
	if v.HFOV < v.MinHFOV || v.HFOV > v.MaxHFOV {
		return fmt.Errorf("viewer HFOV %v outside [%v, %v]", v.HFOV, v.MinHFOV, v.MaxHFOV)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if seed := os.Getenv("SEED_FILE"); seed != "" {
		c.Data.SeedFile = seed
	}

	if url := os.Getenv("PANORAMA_API_URL"); url != "" {
		c.Data.RemoteURL = url
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if c.Data.SeedFile != "" && !filepath.IsAbs(c.Data.SeedFile) {
		c.Data.SeedFile = filepath.Join(configDir, c.Data.SeedFile)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// RequestTimeout returns the remote source timeout
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Data.RequestTimeoutSeconds) * time.Second
}

// LogLevel maps Advanced.LogLevel onto the logger levels. Unknown names
// fall back to INFO.
func (c *AppConfig) LogLevel() log.Lvl {
	switch strings.ToLower(strings.TrimSpace(c.Advanced.LogLevel)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off", "none":
		return log.OFF
	default:
		return log.INFO
	}
}

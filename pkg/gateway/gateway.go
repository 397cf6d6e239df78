// Package gateway provides a reusable build-notification gateway that
// can be embedded into other Go applications.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lei/build-notify/internal/api"
	"github.com/lei/build-notify/internal/config"
	"github.com/lei/build-notify/internal/delivery"
	"github.com/lei/build-notify/internal/delivery/webhook"
	"github.com/lei/build-notify/internal/formatter"
	"github.com/lei/build-notify/internal/models"
	"github.com/lei/build-notify/internal/service"
	"github.com/lei/build-notify/pkg/logger"
)

// Gateway represents a notification gateway instance that can be
// embedded in applications
type Gateway struct {
	config  *Config
	service *service.Service
	router  http.Handler
	server  *http.Server
	logger  *logger.Logger
}

// Config holds the configuration for the Gateway
type Config struct {
	// Server configuration
	Server ServerConfig

	// Authentication configuration
	Auth AuthConfig

	// Master describes the CI master notifications are about
	Master MasterConfig

	// Channels configures the delivery channels
	Channels []ChannelConfig

	// Formatters configures the named message formatters
	Formatters []*FormatterDefinition

	// Logger configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// APIKeys is a list of API keys for authentication
	APIKeys []APIKey
}

// APIKey represents an API key for authentication
type APIKey struct {
	Name string
	Key  string
}

// MasterConfig identifies the CI master in rendered message text
type MasterConfig struct {
	Title string
	URL   string
}

// ChannelConfig configures one delivery channel
type ChannelConfig struct {
	Name string
	Kind string // "webhook" or "nop"

	// Webhook-specific settings
	URL         string
	BearerToken string
	Timeout     time.Duration
}

// FormatterDefinition configures one named formatter
type FormatterDefinition struct {
	Name string
	Kind string // "build" (default) or "missing-worker"
	Mode []string

	TemplateDir      string
	TemplateFilename string
	Template         string
	SubjectFilename  string
	Subject          string
	TemplateType     string
	ExtraContext     map[string]interface{}

	WantProperties bool
	WantSteps      bool
	WantLogs       bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// New creates a new Gateway instance with the provided configuration
func New(cfg *Config) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Initialize logger
	appLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	// Initialize delivery channels
	notifiers := make([]delivery.Notifier, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		switch ch.Kind {
		case "", "webhook":
			n, err := webhook.New(webhook.Config{
				Name:        ch.Name,
				URL:         ch.URL,
				BearerToken: ch.BearerToken,
				Timeout:     ch.Timeout,
			}, appLogger)
			if err != nil {
				return nil, fmt.Errorf("initialize channel %s: %w", ch.Name, err)
			}
			notifiers = append(notifiers, n)
			appLogger.Info("initialized webhook channel", "name", n.Name(), "url", ch.URL)

		case "nop":
			notifiers = append(notifiers, delivery.Nop{})

		default:
			return nil, fmt.Errorf("unsupported channel kind: %s", ch.Kind)
		}
	}

	// Convert formatter definitions to internal config format
	defs := make([]*config.Definition, 0, len(cfg.Formatters))
	for _, fd := range cfg.Formatters {
		kind := fd.Kind
		if kind == "" {
			kind = config.KindBuild
		}
		defs = append(defs, &config.Definition{
			Name: fd.Name,
			Kind: kind,
			Mode: models.ReportingMode(fd.Mode),
			Formatter: formatter.Config{
				TemplateDir:      fd.TemplateDir,
				TemplateFilename: fd.TemplateFilename,
				InlineTemplate:   fd.Template,
				SubjectFilename:  fd.SubjectFilename,
				InlineSubject:    fd.Subject,
				TemplateType:     fd.TemplateType,
				ExtraContext:     fd.ExtraContext,
				WantProperties:   fd.WantProperties,
				WantSteps:        fd.WantSteps,
				WantLogs:         fd.WantLogs,
			},
		})
	}

	master := &models.Master{Title: cfg.Master.Title, URL: cfg.Master.URL}

	// Initialize service layer
	svc, err := service.NewService(master, defs, notifiers, appLogger)
	if err != nil {
		return nil, fmt.Errorf("initialize service: %w", err)
	}

	// Initialize API layer
	handlers := api.NewHandlers(svc)

	// Convert APIKeys to internal config format
	configAPIKeys := make([]config.APIKey, len(cfg.Auth.APIKeys))
	for i, key := range cfg.Auth.APIKeys {
		configAPIKeys[i] = config.APIKey{
			Name: key.Name,
			Key:  key.Key,
		}
	}
	authMiddleware := api.NewAuthMiddleware(configAPIKeys)
	loggingMiddleware := api.NewLoggingMiddleware(appLogger)
	router := api.NewRouter(handlers, authMiddleware, loggingMiddleware)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Gateway{
		config:  cfg,
		service: svc,
		router:  router,
		server:  srv,
		logger:  appLogger,
	}, nil
}

// Start starts the HTTP server
// This is a blocking call that will run until the context is canceled or an error occurs
func (g *Gateway) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	// Start server in goroutine
	go func() {
		g.logger.Info("starting http server", "port", g.config.Server.Port)
		serverErrors <- g.server.ListenAndServe()
	}()

	// Wait for context cancellation or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		g.logger.Info("shutdown signal received")

		// Graceful shutdown with 30s timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := g.server.Shutdown(shutdownCtx); err != nil {
			g.server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		g.logger.Info("server stopped gracefully")
		return nil
	}
}

// Handler returns the http.Handler for the gateway
// Use this if you want to integrate the gateway into an existing HTTP server
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Service returns the underlying service layer
// Use this for direct programmatic access to gateway functionality
func (g *Gateway) Service() *service.Service {
	return g.service
}

// NewFromEnv creates a Gateway instance from a configuration file and a
// formatters definition file. Environment variables referenced in either
// file are expanded before parsing.
func NewFromEnv(configFile, formattersFile string) (*Gateway, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	bootLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	defs, err := config.LoadFormatters(formattersFile, bootLogger)
	if err != nil {
		return nil, fmt.Errorf("load formatters: %w", err)
	}

	// Convert to Gateway config
	gwAPIKeys := make([]APIKey, len(cfg.Auth.APIKeys))
	for i, key := range cfg.Auth.APIKeys {
		gwAPIKeys[i] = APIKey{
			Name: key.Name,
			Key:  key.Key,
		}
	}

	channels := make([]ChannelConfig, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		channels[i] = ChannelConfig{
			Name:        ch.Name,
			Kind:        ch.Kind,
			URL:         ch.URL,
			BearerToken: ch.BearerToken,
			Timeout:     ch.Timeout,
		}
	}

	formatters := make([]*FormatterDefinition, len(defs))
	for i, def := range defs {
		formatters[i] = &FormatterDefinition{
			Name:             def.Name,
			Kind:             def.Kind,
			Mode:             def.Mode,
			TemplateDir:      def.Formatter.TemplateDir,
			TemplateFilename: def.Formatter.TemplateFilename,
			Template:         def.Formatter.InlineTemplate,
			SubjectFilename:  def.Formatter.SubjectFilename,
			Subject:          def.Formatter.InlineSubject,
			TemplateType:     def.Formatter.TemplateType,
			ExtraContext:     def.Formatter.ExtraContext,
			WantProperties:   def.Formatter.WantProperties,
			WantSteps:        def.Formatter.WantSteps,
			WantLogs:         def.Formatter.WantLogs,
		}
	}

	gwConfig := &Config{
		Server: ServerConfig{
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		Auth: AuthConfig{
			APIKeys: gwAPIKeys,
		},
		Master: MasterConfig{
			Title: cfg.Master.Title,
			URL:   cfg.Master.URL,
		},
		Channels:   channels,
		Formatters: formatters,
		Logging: LoggingConfig{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		},
	}

	return New(gwConfig)
}

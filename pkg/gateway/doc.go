// Package gateway provides a reusable build-notification gateway library that can be embedded into other Go applications.
//
// # Overview
//
// The gateway is a stateless notification formatter for CI build events: it
// receives build-finished and worker-missing events over a REST API, renders
// them into human-readable messages through configurable templates, and fans
// the result out to the configured delivery channels.
//
// # Basic Usage
//
// Create a gateway programmatically:
//
//	cfg := &gateway.Config{
//		Server: gateway.ServerConfig{
//			Port:         8080,
//			ReadTimeout:  30 * time.Second,
//			WriteTimeout: 30 * time.Second,
//		},
//		Auth: gateway.AuthConfig{
//			APIKeys: []gateway.APIKey{
//				{Name: "my-app", Key: "secret-key-here"},
//			},
//		},
//		Master: gateway.MasterConfig{
//			Title: "Example CI",
//			URL:   "http://ci.example.com/",
//		},
//		Channels: []gateway.ChannelConfig{
//			{Name: "chat", Kind: "webhook", URL: "http://chat.example.com/hook"},
//		},
//		Formatters: []*gateway.FormatterDefinition{
//			{Name: "default", Mode: []string{"change", "problem"}},
//		},
//		Logging: gateway.LoggingConfig{
//			Level:  "info",
//			Format: "json",
//		},
//	}
//
//	gw, err := gateway.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := gw.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Embedding
//
// Use Handler() to mount the gateway inside an existing HTTP server, or
// Service() for direct programmatic access without HTTP:
//
//	msg, err := gw.Service().FormatBuild(ctx, "default", build, blamelist)
//
// # Templates
//
// Message bodies and subjects are Go templates rendered against a context
// assembled from the incoming build record: summary, status_detected,
// buildername, workername, projects, blamelist, sourcestamps, build_url and
// friends. A formatter may name a template file from a directory, supply
// inline template content, or rely on the bundled defaults. Rendering is
// strict: referencing a context key that was never populated is an error,
// never a silent blank.
//
// # Configuration Files
//
// NewFromEnv loads the gateway configuration and formatter definitions from
// YAML files, expanding ${ENV_VAR} references first:
//
//	gw, err := gateway.NewFromEnv("configs/gateway.yaml", "configs/formatters.yaml")
package gateway

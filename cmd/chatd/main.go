// Command chatd runs the chat server: the mixing cascade, the HTTP API,
// the websocket hub and the delivery journal.
//
// # Configuration File
//
// Create a YAML file with server settings:
//
//	http_addr: ":3001"
//	pprof: false
//	cascade:
//	  tick_interval: 100ms
//	  stages:
//	    - name: entry
//	      batch_threshold: 3
//	      max_delay_ms: 500
//	postgres:
//	  host: localhost
//	  port: 5432
//	  user: chat
//	  password: secret
//	  database: chat
//
// # Usage
//
//	go run ./cmd/chatd --addr=:3001
//	go run ./cmd/chatd --config=chatd.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/go-mixcascade/api/httpserver"
	"github.com/ruteri/go-mixcascade/chat"
	"github.com/ruteri/go-mixcascade/mixnet"
	"gopkg.in/yaml.v3"
)

// Config is the chatd configuration surface.
type Config struct {
	HTTPAddr    string                `yaml:"http_addr"`
	EnablePprof bool                  `yaml:"pprof"`
	Cascade     *mixnet.CascadeConfig `yaml:"cascade"`
	Postgres    *chat.PostgresConfig  `yaml:"postgres"`
}

func defaultConfig() *Config {
	return &Config{
		HTTPAddr: ":3001",
		Cascade:  mixnet.DefaultCascadeConfig(),
	}
}

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		addr        = flag.String("addr", "", "HTTP listen address")
		enablePprof = flag.Bool("pprof", false, "Enable pprof debugging API")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *enablePprof {
		cfg.EnablePprof = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		if ctx.Err() != nil {
			return
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*Config, error) {
	cfg := defaultConfig()
	if configPath == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Cascade == nil {
		cfg.Cascade = mixnet.DefaultCascadeConfig()
	}
	return cfg, nil
}

func newJournal(cfg *Config, log *slog.Logger) (chat.Journal, error) {
	if cfg.Postgres == nil {
		log.Info("Using in-memory delivery journal")
		return chat.NewMemoryJournal(), nil
	}

	log.Info("Using PostgreSQL delivery journal", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	return chat.NewPostgresJournal(cfg.Postgres)
}

func run(ctx context.Context, cfg *Config, log *slog.Logger) error {
	journal, err := newJournal(cfg, log)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	svc, err := chat.NewService(cfg.Cascade, journal, log)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer svc.Close()

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		// WriteTimeout stays zero so websocket connections are not cut.
	}, chat.NewHandler(svc))
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	driver := mixnet.NewTickDriver(svc.Cascade(), cfg.Cascade.TickInterval, log)
	go driver.Run(ctx)

	srv.RunInBackground()
	log.Info("chatd started", "addr", cfg.HTTPAddr, "stages", svc.Cascade().StageNames(), "tickInterval", cfg.Cascade.TickInterval)

	<-ctx.Done()

	log.Info("Shutting down")
	srv.Shutdown()
	return nil
}

// Package chat parses chat command flags and composes transport entrypoints.
package chat

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/louisbranch/dualitydice/internal/duality/service"
	entrypoint "github.com/louisbranch/dualitydice/internal/platform/cmd"
	server "github.com/louisbranch/dualitydice/internal/services/chat/app"
)

// Config holds chat command configuration.
type Config struct {
	HTTPAddr string `env:"DUALITY_CHAT_HTTP_ADDR" envDefault:":8086"`

	Service service.Config `env:"-"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	svc, err := service.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Service = svc

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "chat HTTP listen address")
	cfg.Service.BindFlags(fs)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens the store and serves the chat transport until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceChat, func(ctx context.Context) error {
		svc, err := service.Open(cfg.Service, log.Default())
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}()

		if err := server.Run(ctx, server.Config{HTTPAddr: cfg.HTTPAddr}, svc); err != nil {
			return fmt.Errorf("serve chat: %w", err)
		}
		return nil
	})
}

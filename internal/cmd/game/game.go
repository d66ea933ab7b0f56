// Package game parses game command flags and starts the gRPC service.
package game

import (
	"context"
	"flag"
	"log"

	"github.com/louisbranch/dualitydice/internal/duality/service"
	entrypoint "github.com/louisbranch/dualitydice/internal/platform/cmd"
	server "github.com/louisbranch/dualitydice/internal/services/game/app"
)

// Config holds game command configuration.
type Config struct {
	Port int    `env:"DUALITY_GAME_PORT" envDefault:"8082"`
	Addr string `env:"DUALITY_GAME_ADDR"`

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

	fs.IntVar(&cfg.Port, "port", cfg.Port, "The game server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The game server listen address (overrides -port)")
	cfg.Service.BindFlags(fs)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens the store and serves the gRPC API until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGame, func(ctx context.Context) error {
		svc, err := service.Open(cfg.Service, log.Default())
		if err != nil {
			return err
		}
		defer func() {
			if err := svc.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}()

		if cfg.Addr != "" {
			return server.RunWithAddr(ctx, cfg.Addr, svc)
		}
		return server.Run(ctx, cfg.Port, svc)
	})
}

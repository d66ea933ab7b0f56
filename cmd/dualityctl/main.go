// Package main runs dualityctl.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/dualitydice/internal/cmd/dualityctl"
	entrypoint "github.com/louisbranch/dualitydice/internal/platform/cmd"
)

func main() {
	cfg, err := dualityctl.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceCLI))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := dualityctl.NewRootCommand(cfg, nil)
	err = entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCLI, root.ExecuteContext)
	if err == nil {
		return
	}
	var replyErr *dualityctl.ReplyError
	if !errors.As(err, &replyErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	stop()
	os.Exit(1)
}

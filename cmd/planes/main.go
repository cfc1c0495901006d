// Command planes drives the show/hide choreography of a banded image effect
// and prints every state it lands on.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/librescoot/viafsm/internal/planes"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "planes:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := planes.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	landed := make(chan planes.State, 1)
	effect := planes.NewEffect(cfg, rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		planes.WithLogger(logger),
		planes.WithLandedFunc(func(s planes.State) {
			select {
			case landed <- s:
			default:
			}
		}),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- effect.Run(ctx) }()

	for i := 0; i < cfg.Toggles; i++ {
		effect.Tap()
		select {
		case s := <-landed:
			fmt.Printf("toggle %d: %s\n", i+1, s)
		case <-ctx.Done():
			return nil
		}
	}

	cancel()
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newLogger(cfg planes.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h).With("app", "planes")
}

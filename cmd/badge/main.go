// badge runs the badge firmware tasks on a host computer.
//
// The LED strip is drawn on the terminal, display frames are written to a
// PNG file, and the keyboard stands in for the buttons. Press Ctrl-C to
// quit.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/b97tsk/coop"
	"github.com/b97tsk/coop/badge"
	"github.com/b97tsk/coop/clock"
	"github.com/b97tsk/coop/internal/config"
	"github.com/b97tsk/coop/internal/sim"
	"github.com/b97tsk/coop/static"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, frame string
	var debug, rainbow bool

	flagSet := pflag.NewFlagSet("badge", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&frame, "frame", "", "write display frames to this PNG file")
	flagSet.BoolVar(&rainbow, "rainbow", false, "cycle the LEDs through colors instead of following buttons")
	flagSet.BoolVar(&debug, "debug", false, "log debug messages (also enabled by BADGE_DEBUG)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if frame != "" {
		cfg.Display.Frame = frame
	}
	if rainbow {
		cfg.LEDs.Mode = config.ModeRainbow
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if debug || os.Getenv("BADGE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	executor := coop.NewExecutor(cfg.Tasks, clk)
	keyboard := sim.NewKeyboard(executor, clk, cfg.KeyMap(), cfg.Input(badge.Up).Active, cfg.Buttons.Release)

	devices := badge.Devices{
		LEDs:    sim.NewStrip(termenv.NewOutput(os.Stdout), cfg.LEDs.Count),
		Buttons: keyboard.Buttons(),
		Bus:     coop.NewSemaphore(1),
	}
	if cfg.Display.Frame != "" {
		devices.Display = sim.NewScreen(cfg.Display.Width, cfg.Display.Height, cfg.Display.Frame)
	}

	options := badge.Options{
		Capacity:      cfg.Channel.Capacity,
		Subscribers:   cfg.Channel.Subscribers,
		Publishers:    cfg.Channel.Publishers,
		Inputs:        cfg.Input,
		Rainbow:       cfg.LEDs.Mode == config.ModeRainbow,
		RainbowPeriod: cfg.LEDs.RainbowPeriod,
		Hold:          cfg.LEDs.Hold,
		Heartbeat:     cfg.Heartbeat,
	}

	arena := static.NewArena(cfg.Arena)
	if _, err := badge.Wire(executor, arena, devices, options, logger); err != nil {
		return fmt.Errorf("wiring badge: %w", err)
	}

	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			return fmt.Errorf("set terminal raw mode: %w", err)
		}
		defer term.Restore(stdinFd, oldState)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return executor.Run(ctx)
	})
	group.Go(func() error {
		return keyboard.Run(ctx, os.Stdin)
	})

	err = group.Wait()
	fmt.Fprint(os.Stdout, "\r\n")

	switch {
	case errors.Is(err, sim.ErrInterrupted), errors.Is(err, context.Canceled):
		logger.Info("shutting down")
		return nil
	}
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

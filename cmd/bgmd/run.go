package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/austinkregel/local-media/bgmd/internal/bgm"
	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/script"
	"github.com/spf13/cobra"
)

type runParams struct {
	Script  string `pos:"true" required:"true" help:"Lua script to run"`
	Config  string `short:"c" optional:"true" help:"Configuration directory"`
	DryRun  bool   `optional:"true" help:"Use the in-memory engine instead of an audio device"`
	NoInit  bool   `optional:"true" help:"Leave Init to the script"`
	Verbose bool   `short:"v" optional:"true" help:"Enable debug logging"`
}

func runCmd() *cobra.Command {
	return boa.CmdT[runParams]{
		Use:   "run",
		Short: "Run a Lua script against an in-process engine",
		Long:  "run executes a Lua script in which every call surface function is a global, e.g. LoadModule(\"intro.xm\", 0).",
		RunFunc: func(params *runParams, cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runScript(ctx, params); err != nil {
				fmt.Fprintf(os.Stderr, "bgmd: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runScript(ctx context.Context, params *runParams) error {
	cfgMgr, err := loadConfig(params.Config)
	if err != nil {
		return err
	}
	cfg := cfgMgr.Get()

	logger, closer, err := newLogger(cfgMgr.ErrorLogPath(), params.Verbose)
	if err != nil {
		return err
	}
	defer closer.Close()

	var eng engine.Engine = engine.NewMemory()
	if !params.DryRun {
		eng = engine.NewBeep()
	}

	sys := bgm.New(eng, logger)
	if !params.NoInit {
		if !sys.Init(bgm.InitParams{
			Device:     cfg.Device.Index,
			SampleRate: cfg.Device.SampleRate,
			BitDepth:   cfg.Device.BitDepth,
			Mono:       cfg.Device.Mono,
		}) {
			return fmt.Errorf("failed to initialize engine: %s", sys.Error())
		}
		applyBehavior(sys, cfg.Behavior)
	}
	defer sys.Close()

	host := script.NewHost(sys, os.Stdout, logger)
	defer host.Close()

	return host.RunFile(ctx, params.Script)
}

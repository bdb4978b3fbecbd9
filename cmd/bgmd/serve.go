package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/austinkregel/local-media/bgmd/internal/bgm"
	"github.com/austinkregel/local-media/bgmd/internal/config"
	"github.com/austinkregel/local-media/bgmd/internal/engine"
	"github.com/austinkregel/local-media/bgmd/internal/ipc"
	"github.com/austinkregel/local-media/bgmd/internal/media"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveParams struct {
	Socket  string `short:"s" optional:"true" help:"IPC socket path (default: /tmp/bgmd-<uid>.sock)"`
	Config  string `short:"c" optional:"true" help:"Configuration directory (default: ~/.config/bgmd)"`
	DryRun  bool   `optional:"true" help:"Use the in-memory engine instead of an audio device"`
	Verbose bool   `short:"v" optional:"true" help:"Enable debug logging"`
}

func serveCmd() *cobra.Command {
	return boa.CmdT[serveParams]{
		Use:   "serve",
		Short: "Run the daemon",
		RunFunc: func(params *serveParams, cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, params); err != nil {
				fmt.Fprintf(os.Stderr, "bgmd: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func serve(ctx context.Context, params *serveParams) error {
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

	logger.Info().Str("version", appVersion()).Str("config", cfgMgr.GetPath()).Msg("bgmd starting")

	var eng engine.Engine
	if params.DryRun {
		logger.Info().Msg("Dry run, using in-memory engine")
		eng = engine.NewMemory()
	} else {
		eng = engine.NewBeep()
	}

	sys := bgm.New(eng, logger)
	if !sys.Init(bgm.InitParams{
		Device:     cfg.Device.Index,
		SampleRate: cfg.Device.SampleRate,
		BitDepth:   cfg.Device.BitDepth,
		Mono:       cfg.Device.Mono,
	}) {
		return fmt.Errorf("failed to initialize engine: %s", sys.Error())
	}
	defer sys.Close()
	applyBehavior(sys, cfg.Behavior)

	session := newMediaSession(logger)
	defer session.Close()
	sys.SetSession(session)

	server := ipc.NewServer(resolveSocket(params.Socket, cfg), sys, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("IPC server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := cfgMgr.Watch(gctx, logger, func(b config.BehaviorConfig) {
			applyBehavior(sys, b)
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Config hot reload disabled")
		}
		return nil
	})

	err = g.Wait()
	logger.Info().Msg("bgmd stopped")
	return err
}

func applyBehavior(sys *bgm.System, b config.BehaviorConfig) {
	sys.SetStreamByDefault(b.StreamByDefault)
	sys.SetReportErrors(b.ReportErrors)
}

func newMediaSession(logger zerolog.Logger) media.Session {
	logger = logger.With().Str("component", "media").Logger()

	session, err := media.NewSession()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize media session, continuing without OS media integration")
		return media.NewNoOpSession()
	}
	logger.Info().Msg("Media session initialized")
	return session
}

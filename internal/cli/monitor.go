package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pwalsh/cachemon/internal/backend/resctrl"
	"github.com/pwalsh/cachemon/internal/config"
	"github.com/pwalsh/cachemon/internal/logger"
	"github.com/pwalsh/cachemon/internal/monitor"
)

// monitorCommand wires a full monitoring run: config and flags, target
// registry, backend discovery, output destination, and the polling loop.
// It blocks until the run ends or an interrupt arrives.
func monitorCommand(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override config-file and environment defaults.
	flags := cmd.Flags()
	if flags.Changed("mon-interval") {
		cfg.Interval = monIntervalFlag
	}
	if flags.Changed("mon-time") {
		cfg.Time = monTimeFlag
	}
	if flags.Changed("mon-top") {
		cfg.Top = monTopFlag
	}
	if flags.Changed("mon-file") {
		cfg.File = monFileFlag
	}
	if flags.Changed("mon-file-type") {
		cfg.Format = monTypeFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	timeout, err := config.ParseTime(cfg.Time)
	if err != nil {
		return err
	}
	enc, err := monitor.ParseEncoding(cfg.Format)
	if err != nil {
		return err
	}

	registry := monitor.NewRegistry()
	for _, spec := range monCoreFlags {
		if err := registry.AddCoreSpec(spec); err != nil {
			return err
		}
	}
	for _, spec := range monPIDFlags {
		if err := registry.AddPIDSpec(spec); err != nil {
			return err
		}
	}

	log := logger.NewEnvLogger("[cachemon]")
	b := resctrl.New(logger.NewEnvLogger("[resctrl]"))

	caps, err := b.Capability()
	if err != nil {
		return err
	}
	topo, err := b.CPUInfo()
	if err != nil {
		return err
	}

	if err := registry.Finalize(caps, topo); err != nil {
		return err
	}
	factors, err := monitor.ResolveFactors(registry.MaxEvents(), caps)
	if err != nil {
		return err
	}

	out, prologue, err := monitor.OpenDestination(cfg.File, enc)
	if err != nil {
		return err
	}
	closeOut := func() {
		if out != os.Stdout {
			out.Close()
		}
	}

	if err := registry.Start(b); err != nil {
		closeOut()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	defer stop()

	loop := monitor.NewLoop(b, registry, monitor.Config{
		Interval:    cfg.Interval,
		Timeout:     timeout,
		TopLike:     cfg.Top,
		Encoding:    enc,
		XMLPrologue: prologue,
	}, factors, out, log)

	runErr := loop.Run(ctx)

	registry.Stop(b, log)
	closeOut()
	return runErr
}

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/internal/scenario"
	"github.com/wippyai/ownership/metrics"
	"github.com/wippyai/ownership/ptr"
)

var walkthroughs = map[string]func(io.Writer){
	"scope": scenario.ScopeWalkthrough,
	"ref":   scenario.RefWalkthrough,
	"weak":  scenario.WeakWalkthrough,
}

func NewRootCommand(ctx context.Context) *cobra.Command {
	o := NewOptions()

	root := &cobra.Command{
		Use:          "ownctl",
		Short:        "Exercise ownership handles",
		SilenceUsage: true,
	}
	o.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newExamplesCommand(ctx, o),
		newLeakCommand(ctx, o),
		newStressCommand(ctx, o),
	)
	return root
}

func newExamplesCommand(ctx context.Context, o *options) *cobra.Command {
	return &cobra.Command{
		Use:       "examples [scope|ref|weak]...",
		Short:     "Run the ownership walkthroughs",
		ValidArgs: []string{"scope", "ref", "weak"},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd.Flags()); err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"scope", "ref", "weak"}
			}
			return o.withMetrics(ctx, func() error {
				out := cmd.OutOrStdout()
				for i, name := range args {
					if i > 0 {
						fmt.Fprintln(out)
					}
					walkthroughs[name](out)
				}
				return nil
			})
		},
	}
}

func newLeakCommand(ctx context.Context, o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leak",
		Short: "Create and drop objects, verifying every one is destroyed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.Complete(cmd.Flags()); err != nil {
				return err
			}
			return o.withMetrics(ctx, func() error {
				return o.runLeak(ctx, cmd.OutOrStdout())
			})
		},
	}
	o.addLeakFlags(cmd.Flags())
	return cmd
}

func (o *options) runLeak(ctx context.Context, out io.Writer) error {
	var result *multierror.Error
	for _, kind := range o.cfg.LeakKinds {
		if err := ctx.Err(); err != nil {
			return multierror.Append(result, err)
		}
		start := time.Now()
		report, err := scenario.Leak(kind, o.cfg.LeakIterations)
		elapsed := time.Since(start)

		status := "ok"
		if err != nil {
			status = "FAILED"
			result = multierror.Append(result, err)
		}
		fmt.Fprintf(out, "%-6s %-6s iterations=%d destroyed=%d live_objects=%d live_blocks=%d elapsed=%s\n",
			kind, status, report.Iterations, report.Destroyed,
			report.Stats.LiveObjects(), report.Stats.LiveBlocks(), elapsed.Round(time.Millisecond))
		o.log.Info("leak run finished",
			zap.String("kind", string(kind)),
			zap.Int("iterations", report.Iterations),
			zap.Int64("destroyed", report.Destroyed),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}
	return result.ErrorOrNil()
}

func newStressCommand(ctx context.Context, o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Race concurrent drops and weak promotions of shared objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.Complete(cmd.Flags()); err != nil {
				return err
			}
			return o.withMetrics(ctx, func() error {
				if o.interactive {
					if !term.IsTerminal(int(os.Stdout.Fd())) {
						return errors.Unsupported(errors.PhaseConfig, "interactive mode without a terminal")
					}
					return runInteractive(ctx, o.stressConfig())
				}
				return o.runStress(ctx, cmd.OutOrStdout())
			})
		},
	}
	o.addStressFlags(cmd.Flags())
	return cmd
}

func (o *options) stressConfig() scenario.StressConfig {
	return scenario.StressConfig{
		Goroutines: o.cfg.StressGoroutines,
		Rounds:     o.cfg.StressRounds,
	}
}

func (o *options) runStress(ctx context.Context, out io.Writer) error {
	cfg := o.stressConfig()
	step := max(cfg.Rounds/10, 1)
	cfg.Progress = func(round, total int) {
		if round%step == 0 || round == total {
			o.log.Debug("stress progress", zap.Int("round", round), zap.Int("total", total))
		}
	}

	start := time.Now()
	report, err := scenario.Stress(ctx, cfg)
	fmt.Fprintf(out, "rounds=%d destroyed=%d promotions=%d lock_misses=%d violations=%d elapsed=%s\n",
		report.Rounds, report.Destroyed, report.Promotions, report.LockMisses,
		report.Stats.Violations, time.Since(start).Round(time.Millisecond))
	return err
}

// withMetrics runs fn while serving the metrics endpoint, if one is
// configured.
func (o *options) withMetrics(ctx context.Context, fn func() error) error {
	if o.cfg.MetricsAddr == "" {
		return fn()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics.Register(reg, metrics.NewCollector())

	ln, err := net.Listen("tcp", o.cfg.MetricsAddr)
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "metrics listener")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			o.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	o.log.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s := ptr.ReadStats()
		o.log.Info("final ownership stats",
			zap.Uint64("live_objects", s.LiveObjects()),
			zap.Uint64("live_blocks", s.LiveBlocks()),
			zap.Uint64("violations", s.Violations))
	}()
	return fn()
}

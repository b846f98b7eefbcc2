// Command lottery-draw generates a batch of draws from collected entropy,
// selects the final draw and optionally analyzes the batch.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kydenul/lottery"
)

type options struct {
	configFile string
	draws      int
	analyze    bool
	seed       string
	jsonOut    bool
	quiet      bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var opts options
	fs.StringVar(&opts.configFile, "config", "", "path to a config file (default: search config.yaml)")
	fs.IntVar(&opts.draws, "draws", 0, "number of draws in the batch (default: draw.number_of_draws)")
	fs.BoolVar(&opts.analyze, "analyze", false, "run the randomness analysis over the batch")
	fs.StringVar(&opts.seed, "seed", "", "replay the draw of a seed (decimal or 0x hex) and exit")
	fs.BoolVar(&opts.jsonOut, "json", false, "print the result as JSON")
	fs.BoolVar(&opts.quiet, "quiet", false, "disable logging")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.draws < 0 {
		return opts, fmt.Errorf("-draws must not be negative")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	var logger lottery.Logger = &lottery.DefaultLogger{}
	if opts.quiet {
		logger = lottery.NewSilentLogger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		log.Printf("lottery-draw: %v", err)
		stop()
		os.Exit(1)
	}
}

// result is the JSON output of a run
type result struct {
	BatchID  string                  `json:"batch_id,omitempty"`
	Draws    int                     `json:"draws"`
	Index    int                     `json:"index"`
	Selected *lottery.Draw           `json:"selected"`
	Analysis *lottery.AnalysisReport `json:"analysis,omitempty"`
}

func run(ctx context.Context, opts options, out io.Writer, logger lottery.Logger) error {
	cm := lottery.NewConfigManager(logger)
	if opts.configFile != "" {
		cm.SetConfigFile(opts.configFile)
	}
	cfg, err := cm.LoadConfig()
	if err != nil {
		return err
	}
	if opts.draws > 0 {
		cfg.Draw.NumberOfDraws = opts.draws
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	engineOpts := []lottery.EngineOption{lottery.WithLogger(logger)}

	if cfg.Redis.Enabled {
		client := lottery.NewRedisClientFromConfig(cfg.Redis)
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// 没有 Redis 仍可开奖, 只是不缓存天气也不保存批次
			logger.Error("Redis unavailable at %s, continuing without it: %v", cfg.Redis.Addr, err)
		} else {
			engineOpts = append(engineOpts, lottery.WithRedis(client))
		}
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		engineOpts = append(engineOpts, lottery.WithMetrics(lottery.NewPromMetrics(reg)))

		srv := startMetrics(cfg.Metrics.Addr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	engine, err := lottery.NewLotteryEngine(cfg, engineOpts...)
	if err != nil {
		return err
	}

	if opts.seed != "" {
		return replay(engine, opts, out)
	}

	n := cfg.Draw.NumberOfDraws
	step := max(n/10, 1)
	batch, err := engine.GenerateDraws(ctx, n, func(completed, total int, _ *lottery.Draw) {
		if completed%step == 0 || completed == total {
			logger.Info("Progress: %d/%d draws", completed, total)
		}
	})
	if err != nil {
		return err
	}

	selected, idx, err := engine.SelectDraw(ctx, batch)
	if err != nil {
		return err
	}

	res := result{Draws: len(batch), Index: idx, Selected: selected}

	batchID, err := engine.SaveBatch(ctx, batch)
	switch {
	case err == nil:
		res.BatchID = batchID
	case errors.Is(err, lottery.ErrServiceUnavailable):
	default:
		logger.Error("Failed to save batch: %v", err)
	}

	if opts.analyze {
		if res.Analysis, err = engine.Analyze(batch); err != nil {
			return err
		}
	}

	if opts.jsonOut {
		return writeJSON(out, res)
	}
	writeText(out, res)
	return nil
}

func replay(engine *lottery.LotteryEngine, opts options, out io.Writer) error {
	seed, err := lottery.ParseSeed(opts.seed)
	if err != nil {
		return err
	}
	draw, err := engine.Replay(seed)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return writeJSON(out, draw)
	}
	fmt.Fprintf(out, "%s\nseed: %s\n", draw, draw.Seed())
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeText(out io.Writer, res result) {
	fmt.Fprintf(out, "Selected draw %d of %d: %s\n", res.Index+1, res.Draws, res.Selected)
	fmt.Fprintf(out, "seed: %s\n", res.Selected.Seed())
	if res.BatchID != "" {
		fmt.Fprintf(out, "batch: %s\n", res.BatchID)
	}

	if a := res.Analysis; a != nil {
		fmt.Fprintf(out, "\nAnalysis of %d draws\n", a.SampleSize)
		for _, d := range []struct {
			name string
			da   lottery.DomainAnalysis
		}{{"numbers", a.Numbers}, {"stars", a.Stars}} {
			fmt.Fprintf(out, "  %-8s chi2=%.4f df=%d p=%.4f stddev=%.3f variation=%.1f%% min=%v(%d) max=%v(%d) -> %s\n",
				d.name, d.da.ChiSquare, d.da.DegreesOfFreedom, d.da.PValue, d.da.StdDev, d.da.VariationPct,
				d.da.MinValues, d.da.MinCount, d.da.MaxValues, d.da.MaxCount, d.da.Assessment)
		}
	}
}

func startMetrics(addr string, reg *prometheus.Registry, logger lottery.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server exited: %v", err)
		}
	}()
	logger.Info("Serving metrics on %s/metrics", addr)
	return srv
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/born-ml/convkit/backend/cpu"
	"github.com/born-ml/convkit/tensor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type benchConfig struct {
	Batch       int
	Channels    int
	Size        int
	OutChannels int
	Kernel      int
	Stride      int
	Pool        int
	Factor      int
	Runs        int
	Seed        int64
	Strategy    cpu.Strategy
	Parallel    bool
	OTel        bool
	Listen      string
	Verbose     bool
}

func parseBenchFlags(args []string) (benchConfig, error) {
	var cfg benchConfig
	var strategy string

	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.IntVar(&cfg.Batch, "batch", 1, "Images per batch")
	fs.IntVar(&cfg.Channels, "channels", 3, "Input channels")
	fs.IntVar(&cfg.Size, "size", 512, "Input height and width")
	fs.IntVar(&cfg.OutChannels, "out-channels", 32, "Convolution output channels")
	fs.IntVar(&cfg.Kernel, "kernel", 3, "Convolution kernel height and width (odd)")
	fs.IntVar(&cfg.Stride, "stride", 1, "Convolution stride")
	fs.IntVar(&cfg.Pool, "pool", 2, "Max-pool stride")
	fs.IntVar(&cfg.Factor, "factor", 2, "Upsample factor")
	fs.IntVar(&cfg.Runs, "runs", 2, "Timed runs; the first one also sizes the column buffer")
	fs.Int64Var(&cfg.Seed, "seed", 1, "Random seed for the synthetic image")
	fs.StringVar(&strategy, "strategy", "", "Gather strategy: scalar or batch (default: detected)")
	fs.BoolVar(&cfg.Parallel, "parallel", false, "Upsample planes in parallel")
	fs.BoolVar(&cfg.OTel, "otel", false, "Enable OpenTelemetry tracing (stdout)")
	fs.StringVar(&cfg.Listen, "listen", "", "Serve Prometheus metrics on this address after the runs (e.g. :9100)")
	fs.BoolVar(&cfg.Verbose, "v", false, "Debug logging")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Strategy = cpu.DefaultStrategy()
	if strategy != "" {
		s, ok := cpu.ParseStrategy(strategy)
		if !ok {
			return cfg, fmt.Errorf("unknown strategy %q", strategy)
		}
		cfg.Strategy = s
	}

	for name, v := range map[string]int{
		"batch": cfg.Batch, "channels": cfg.Channels, "size": cfg.Size,
		"out-channels": cfg.OutChannels, "kernel": cfg.Kernel, "stride": cfg.Stride,
		"pool": cfg.Pool, "factor": cfg.Factor, "runs": cfg.Runs,
	} {
		if v <= 0 {
			return cfg, fmt.Errorf("-%s must be positive, got %d", name, v)
		}
	}
	if cfg.Kernel%2 == 0 {
		return cfg, errors.New("-kernel must be odd")
	}
	return cfg, nil
}

func runBenchCommand(ctx context.Context, cfg benchConfig) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if cfg.OTel {
		shutdown, err := initTracer()
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Failed to flush traces")
			}
		}()
	}

	if _, err := runBench(ctx, cfg, log.Logger); err != nil {
		return err
	}

	if cfg.Listen != "" {
		http.Handle("/metrics", promhttp.Handler())
		log.Info().Str("addr", cfg.Listen).Msg("Serving metrics")
		if err := http.ListenAndServe(cfg.Listen, nil); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
	}
	return nil
}

// benchResult holds the output shapes and the durations of the last run.
type benchResult struct {
	ConvShape, PoolShape, UpShape tensor.Shape
	Durations                     map[string]time.Duration
}

func runBench(ctx context.Context, cfg benchConfig, logger zerolog.Logger) (benchResult, error) {
	opts := []cpu.Option{cpu.WithStrategy(cfg.Strategy), cpu.WithLogger(logger)}
	if cfg.Parallel {
		opts = append(opts, cpu.WithParallel(cpu.DefaultParallelConfig()))
	}
	backend := cpu.New(opts...)

	rng := rand.New(rand.NewSource(cfg.Seed))
	img, err := randomTensor(rng, tensor.Shape{cfg.Batch, cfg.Channels, cfg.Size, cfg.Size})
	if err != nil {
		return benchResult{}, err
	}
	kernel, err := randomTensor(rng, tensor.Shape{cfg.OutChannels, cfg.Channels, cfg.Kernel, cfg.Kernel})
	if err != nil {
		return benchResult{}, err
	}

	logger.Info().
		Ints("image", img.Shape()).
		Ints("kernel", kernel.Shape()).
		Str("strategy", cfg.Strategy.String()).
		Int("runs", cfg.Runs).
		Msg("Starting benchmark")

	tracer := otel.Tracer("github.com/born-ml/convkit/cmd/convkit")
	var res benchResult

	for run := 0; run < cfg.Runs; run++ {
		res.Durations = make(map[string]time.Duration, 3)

		timed := func(op string, f func() (*tensor.RawTensor, error)) (*tensor.RawTensor, error) {
			_, span := tracer.Start(ctx, op)
			defer span.End()
			span.SetAttributes(
				attribute.Int("run", run),
				attribute.String("strategy", cfg.Strategy.String()),
			)

			start := time.Now()
			out, err := f()
			res.Durations[op] = time.Since(start)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			span.SetAttributes(attribute.IntSlice("shape", out.Shape()))
			return out, nil
		}

		conv, err := timed("conv2d", func() (*tensor.RawTensor, error) {
			return backend.Conv2D(img, kernel, [2]int{cfg.Stride, cfg.Stride})
		})
		if err != nil {
			return res, err
		}
		pooled, err := timed("maxpool2d", func() (*tensor.RawTensor, error) {
			return backend.MaxPool2D(conv, [2]int{cfg.Pool, cfg.Pool})
		})
		if err != nil {
			return res, err
		}
		up, err := timed("upsample", func() (*tensor.RawTensor, error) {
			return backend.Upsample(pooled, cfg.Factor, nil)
		})
		if err != nil {
			return res, err
		}

		res.ConvShape, res.PoolShape, res.UpShape = conv.Shape(), pooled.Shape(), up.Shape()
		logger.Info().
			Int("run", run).
			Dur("conv2d", res.Durations["conv2d"]).
			Dur("maxpool2d", res.Durations["maxpool2d"]).
			Dur("upsample", res.Durations["upsample"]).
			Int("colbuf_elems", backend.Columns().Cap()).
			Msg("Run complete")
	}
	return res, nil
}

func randomTensor(rng *rand.Rand, shape tensor.Shape) (*tensor.RawTensor, error) {
	raw, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		return nil, err
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return raw, nil
}

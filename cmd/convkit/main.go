// Package main provides the convkit CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const version = "v0.1.0-dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("convkit %s\n", version)
	case "bench":
		cfg, err := parseBenchFlags(os.Args[2:])
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid bench flags")
		}
		if err := runBenchCommand(context.Background(), cfg); err != nil {
			log.Fatal().Err(err).Msg("Benchmark failed")
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("convkit - im2col convolution, pooling and upsampling kernels")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  bench      Time Conv2D, MaxPool2D and Upsample on a synthetic image")
}

package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dorsic/sr620/pkg/sr620"
)

// Runs the logger against a simulated instrument instead of real hardware.
func main() {
	cfg := sr620.DefaultConfig()
	cfg.Storage.PrimaryPath = "./data"
	if err := os.MkdirAll(cfg.Storage.PrimaryPath, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	sampler := sr620.FuncSampler(func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
		}
		// A 10 MHz frequency reading with some jitter, in SR620 notation.
		value := 1.0e7 + rand.Float64()
		return fmt.Sprintf("%.11E", value), nil
	})

	rt, err := sr620.NewRuntime(cfg, sr620.WithSampler(sampler))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("logger exited: %v", err)
	}
}

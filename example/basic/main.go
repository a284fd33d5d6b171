package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/dorsic/sr620"
)

func main() {
	rt, err := sr620.Conf("../../data/sr620.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("logger exited: %v", err)
	}
}

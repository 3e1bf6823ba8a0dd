// Command server runs the ride event relay.
package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/thereayou/ride-relay/internal/config"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Server init failed: %v", err)
	}
	srv.Start()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"relay": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return srv.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Relay exited with code: %d", exitCode)
	os.Exit(exitCode)
}

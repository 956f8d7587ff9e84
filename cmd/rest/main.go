package main

import (
	"context"
	"log"

	"agui-policy-be/internal/bootstrap"
	"agui-policy-be/internal/config"
	"agui-policy-be/internal/server"
	"agui-policy-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Services
	go container.WebSocketHub.Run()
	go func() {
		log.Println("Background: Starting Broadcast Bridge...")
		if err := container.BroadcastService.Start(context.Background()); err != nil {
			log.Printf("Background Broadcast Error: %v", err)
		}
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}

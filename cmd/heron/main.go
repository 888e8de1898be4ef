package main

import (
	"flag"
	"fmt"

	"github.com/alignecoderepos/heron/internal/config"
	"github.com/alignecoderepos/heron/internal/logging"
	"github.com/alignecoderepos/heron/internal/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "heron.toml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		logging.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.CloseLogger()

	srv, err := server.New(cfg)
	if err != nil {
		logging.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Start(); err != nil {
		logging.Fatalf("Server error: %v", err)
	}

	fmt.Printf("Heron server started on %s\n", srv.Addr())

	// SIGINT/SIGTERM are handled by the server itself.
	<-srv.Done()
	fmt.Println("Heron server stopped")
}

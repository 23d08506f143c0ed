package main

import (
	"flag"
	"fmt"
	"os"

	"wavault/internal/app"
	"wavault/internal/infra/config"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	sessionID := flag.String("session", "", "session id to start (new or existing)")
	freshHistory := flag.Bool("fresh-history", false, "clear sync state so the session replays full history")
	flag.Parse()

	cfg := config.Load(*configPath)

	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(*sessionID, *freshHistory); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"classifier-api/internal/client"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8000", "Classifier API base URL")
	apiKey := flag.String("api-key", "", "API key sent as X-API-Key")
	model := flag.String("model", "logistic", "Model used for predictions")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: API_KEY or --api-key is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh := client.NewShell(client.New(*baseURL, *apiKey), *model, os.Stdout)
	if info, err := sh.Client.CheckStatus(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "API connection failed: %v\n", err)
	} else {
		fmt.Printf("Connected to %s v%s (%s). Type help for commands.\n", info.AppName, info.Version, info.Status)
	}
	if err := sh.Run(ctx, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

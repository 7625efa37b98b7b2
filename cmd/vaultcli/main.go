package main

import (
	"context"
	"log"

	"profilevault/internal/app"
	"profilevault/internal/cli"
	"profilevault/internal/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	core, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := core.Close(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	cli.NewApp(core).Run(ctx)
}

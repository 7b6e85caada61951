package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/trackerctl/internal/buildinfo"
	"github.com/dmitrijs2005/trackerctl/internal/client/cli"
	"github.com/dmitrijs2005/trackerctl/internal/client/config"
	"github.com/dmitrijs2005/trackerctl/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app, err := cli.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}

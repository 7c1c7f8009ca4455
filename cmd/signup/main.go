// Command signup serves the registration wizard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gabrielmiguelok/signupkit/internal/config"
	"github.com/gabrielmiguelok/signupkit/internal/server"
	"github.com/gabrielmiguelok/signupkit/pkg/logging"
)

func main() {
	envFile := flag.String("env", "", "path to a .env file (default ./.env if present)")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}

	settings, err := config.Load(files...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "signup:", err)
		os.Exit(2)
	}

	logger := server.Logger(settings.Core.Log)
	logging.SetDefault(logger)

	if err := server.Run(context.Background(), settings, logger); err != nil {
		logger.Error("exiting", logging.Err(err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/urfave/cli/v3"

	"github.com/RichardoC/firmsite-copilot/internal/api"
	"github.com/RichardoC/firmsite-copilot/internal/config"
	"github.com/RichardoC/firmsite-copilot/internal/logging"
)

// The function reads its configuration from the environment only.
func main() {
	cmd := &cli.Command{
		Name:  "firmsite-copilot-lambda",
		Flags: config.Flags(nil),
		Action: func(_ context.Context, c *cli.Command) error {
			cfg := config.FromCommand(c)
			logger, err := logging.New(cfg.Verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			handler, err := api.FromConfig(cfg, logger)
			if err != nil {
				return err
			}
			lambda.Start(handler.HandleAPIGateway)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{os.Args[0]}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

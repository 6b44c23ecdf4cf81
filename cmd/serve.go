package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/docuchat/internal/api"
	"github.com/docuchat/internal/assistant"
	"github.com/docuchat/internal/chat"
	"github.com/docuchat/internal/config"
	"github.com/docuchat/internal/logging"
)

// ServeCommand returns the CLI command for starting the API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the docuchat API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The API credential and assistant identity are required; the server
	// must not take traffic without them.
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if c.Int("port") > 0 {
		cfg.Server.Port = c.Int("port")
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	client, err := assistant.NewClient(assistant.Options{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("failed to create assistant client: %w", err)
	}

	registry := chat.NewRegistry()
	chatSvc := chat.NewService(client, registry, chat.ServiceOptions{
		AssistantID:  cfg.OpenAI.AssistantID,
		PollInterval: time.Duration(cfg.OpenAI.PollIntervalMS) * time.Millisecond,
	})
	uploader := chat.NewUploader(client)

	server := api.NewServer(chatSvc, uploader, api.Options{
		Port:        cfg.Server.Port,
		UploadDir:   cfg.Server.UploadDir,
		StaticDir:   cfg.Server.StaticDir,
		MaxUploadMB: cfg.Server.MaxUploadMB,
	})

	fmt.Printf("Starting docuchat API server on port %d...\n", cfg.Server.Port)
	return server.Start()
}

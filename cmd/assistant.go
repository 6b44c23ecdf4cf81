package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/docuchat/internal/assistant"
	"github.com/docuchat/internal/config"
)

// AssistantCommand returns the command group for managing the remote
// assistant identity.
func AssistantCommand() *cli.Command {
	return &cli.Command{
		Name:  "assistant",
		Usage: "Manage the remote assistant identity",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create the assistant with document search enabled and print its id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Assistant display name",
						Value: "PDF Analyzer Assistant",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Model the assistant runs on",
						Value: "gpt-4o",
					},
					&cli.StringFlag{
						Name:  "instructions",
						Usage: "System instructions for the assistant",
						Value: "You analyze PDF documents provided by the user and answer questions about their contents.",
					},
				},
				Action: runAssistantCreate,
			},
		},
	}
}

func runAssistantCreate(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api_key is required to create an assistant")
	}

	client, err := assistant.NewClient(assistant.Options{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create assistant client: %w", err)
	}

	created, err := client.CreateAssistant(c.Context, assistant.AssistantCreateParams{
		Name:         c.String("name"),
		Instructions: c.String("instructions"),
		Model:        c.String("model"),
		Tools:        []assistant.Tool{assistant.ToolFileSearch},
	})
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}

	fmt.Println("Assistant created successfully!")
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Assistant ID: %s\n", created.ID)
	fmt.Println("--------------------------------------------------")
	fmt.Println("Set this id as openai.assistant_id in your configuration.")
	return nil
}

package chat

import (
	"context"
	"io"

	"github.com/docuchat/internal/assistant"
)

// Gateway is the slice of the assistant platform this package depends on.
// Satisfied by *assistant.Client; tests substitute a fake.
type Gateway interface {
	CreateThread(ctx context.Context) (*assistant.Thread, error)
	CreateMessage(ctx context.Context, threadID string, params assistant.MessageCreateParams) (*assistant.Message, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (*assistant.Run, error)
	ListMessages(ctx context.Context, threadID string, opts assistant.ListMessagesOptions) ([]assistant.Message, error)
	CreateFile(ctx context.Context, content io.Reader, filename, purpose string) (*assistant.FileObject, error)
}

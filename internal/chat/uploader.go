package chat

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/docuchat/internal/assistant"
)

// Uploader moves staged uploads into the platform's file store.
type Uploader struct {
	gateway Gateway
}

// NewUploader builds an Uploader over the given gateway.
func NewUploader(gateway Gateway) *Uploader {
	return &Uploader{gateway: gateway}
}

// Upload streams the staged file at localPath to the platform's file
// store tagged for assistant document search and returns the stored
// file id. The staged file is deleted whether or not the upload
// succeeds; a deletion failure is logged and never overrides the
// primary result.
func (u *Uploader) Upload(ctx context.Context, localPath, originalName string) (string, error) {
	defer func() {
		if err := os.Remove(localPath); err != nil {
			log.Error().Err(err).Str("path", localPath).Msg("Failed to delete staged upload")
		} else {
			log.Debug().Str("path", localPath).Msg("Staged upload deleted")
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return "", &Error{
			Kind:    KindLocalResource,
			Status:  http.StatusInternalServerError,
			Message: "failed to read staged upload",
			Err:     err,
		}
	}
	defer f.Close()

	file, err := u.gateway.CreateFile(ctx, f, originalName, assistant.PurposeAssistants)
	if err != nil {
		return "", errUpstream("failed to upload file to assistant platform", err)
	}

	log.Info().Str("file_id", file.ID).Str("filename", originalName).Msg("File uploaded for assistant search")
	return file.ID, nil
}

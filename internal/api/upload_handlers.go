package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/docuchat/internal/chat"
)

type uploadResponse struct {
	Message  string `json:"message"`
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
}

// handleUploadPDF stages the multipart upload on local disk, then hands
// it to the uploader, which forwards it to the assistant platform and
// removes the staged copy.
func (s *Server) handleUploadPDF(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Debug().Err(err).Msg("Upload request without file field")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"message": "no file was uploaded",
		})
	}

	stagedPath, err := s.stageUpload(fileHeader)
	if err != nil {
		return &chat.Error{
			Kind:    chat.KindLocalResource,
			Status:  http.StatusInternalServerError,
			Message: "failed to stage uploaded file",
			Err:     err,
		}
	}

	log.Debug().Str("filename", fileHeader.Filename).Str("staged", stagedPath).
		Int64("size", fileHeader.Size).Msg("Upload staged")

	fileID, err := s.uploader.Upload(c.Request().Context(), stagedPath, fileHeader.Filename)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Message:  "File uploaded and registered with the assistant.",
		FileID:   fileID,
		Filename: fileHeader.Filename,
	})
}

// stageUpload writes the multipart part into the staging directory under
// a unique name that keeps the original extension. Uniqueness comes from
// the timestamp plus a random component, not from locking; the staging
// directory is shared across concurrent uploads.
func (s *Server) stageUpload(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("file-%d-%s%s",
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		filepath.Ext(fileHeader.Filename))
	stagedPath := filepath.Join(s.opts.UploadDir, name)

	dst, err := os.Create(stagedPath)
	if err != nil {
		return "", fmt.Errorf("failed to create staged file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(stagedPath)
		return "", fmt.Errorf("failed to write staged file: %w", err)
	}

	return stagedPath, nil
}

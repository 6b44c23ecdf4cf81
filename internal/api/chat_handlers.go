package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/docuchat/internal/assistant"
)

type startChatResponse struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId"`
}

type chatRequest struct {
	ThreadID string `json:"threadId"`
	Message  string `json:"message"`
	FileID   string `json:"fileId,omitempty"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type historyResponse struct {
	History []assistant.Message `json:"history"`
}

// handleStartChat allocates a new conversation thread.
func (s *Server) handleStartChat(c echo.Context) error {
	threadID, err := s.chat.StartSession(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, startChatResponse{
		Message:  "New chat thread started.",
		ThreadID: threadID,
	})
}

// handleChat appends a user turn and holds the request open until the
// assistant's response is available.
func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		log.Debug().Err(err).Msg("Invalid chat request body")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request: threadId and message are required",
		})
	}

	if req.ThreadID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request: threadId and message are required",
		})
	}

	response, err := s.chat.Converse(c.Request().Context(), req.ThreadID, req.Message, req.FileID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, chatResponse{Response: response})
}

// handleHistory returns the full transcript of a thread, oldest first.
func (s *Server) handleHistory(c echo.Context) error {
	threadID := c.Param("sessionId")

	history, err := s.chat.History(c.Request().Context(), threadID)
	if err != nil {
		return err
	}

	if history == nil {
		history = []assistant.Message{}
	}
	return c.JSON(http.StatusOK, historyResponse{History: history})
}

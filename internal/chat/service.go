// Package chat manages conversation threads against the hosted assistant
// platform: session liveness, user turns serialized onto the platform's
// asynchronous run model, attachment uploads and transcript reads.
package chat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/docuchat/internal/assistant"
)

const defaultPollInterval = time.Second

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// AssistantID is the assistant identity runs execute under. Required.
	AssistantID string
	// PollInterval is the delay between run status checks. Defaults to 1s.
	PollInterval time.Duration
}

// Service orchestrates conversations. Concurrent calls on distinct threads
// are independent; concurrent Converse calls on the same thread are not
// serialized here and may interleave at the platform, which may reject or
// order them itself.
type Service struct {
	gateway      Gateway
	registry     *Registry
	assistantID  string
	pollInterval time.Duration

	// sleep waits between poll ticks; injectable so tests run without
	// real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService builds a Service over the given gateway and registry.
func NewService(gateway Gateway, registry *Registry, opts ServiceOptions) *Service {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Service{
		gateway:      gateway,
		registry:     registry,
		assistantID:  opts.AssistantID,
		pollInterval: interval,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StartSession allocates a new thread on the platform and registers it as
// live. On failure nothing is registered.
func (s *Service) StartSession(ctx context.Context) (string, error) {
	thread, err := s.gateway.CreateThread(ctx)
	if err != nil {
		return "", errUpstream("failed to create thread", err)
	}

	s.registry.Add(thread.ID)
	log.Info().Str("thread_id", thread.ID).Msg("New chat thread created")
	return thread.ID, nil
}

// IsLive reports whether the thread id was started by this process.
func (s *Service) IsLive(threadID string) bool {
	return s.registry.IsLive(threadID)
}

// Converse appends a user message to the thread (binding the attachment
// for document search when fileID is set), runs the assistant, waits for
// the run to reach a terminal state and returns the single newest
// assistant message it produced. The appended user message is not rolled
// back if the run subsequently fails.
func (s *Service) Converse(ctx context.Context, threadID, userText, fileID string) (string, error) {
	if !s.registry.IsLive(threadID) {
		return "", errThreadNotFound(threadID)
	}

	params := assistant.MessageCreateParams{
		Role:    assistant.RoleUser,
		Content: userText,
	}
	if fileID != "" {
		params.Attachments = []assistant.Attachment{
			{FileID: fileID, Tools: []assistant.Tool{assistant.ToolFileSearch}},
		}
	}

	if _, err := s.gateway.CreateMessage(ctx, threadID, params); err != nil {
		return "", errUpstream("failed to add message to thread", err)
	}
	log.Debug().Str("thread_id", threadID).Str("file_id", fileID).Msg("Message added to thread")

	run, err := s.gateway.CreateRun(ctx, threadID, s.assistantID)
	if err != nil {
		return "", errUpstream("failed to start run", err)
	}
	log.Debug().Str("thread_id", threadID).Str("run_id", run.ID).Msg("Run created, polling until terminal")

	run, err = s.awaitRun(ctx, threadID, run)
	if err != nil {
		return "", err
	}

	if run.Status != assistant.RunStatusCompleted {
		message := fmt.Sprintf("assistant run ended with status %s", run.Status)
		if run.LastError != nil && run.LastError.Message != "" {
			message = fmt.Sprintf("%s: %s", message, run.LastError.Message)
		}
		log.Warn().Str("thread_id", threadID).Str("run_id", run.ID).
			Str("status", string(run.Status)).Msg("Run did not complete")
		return "", &Error{
			Kind:    KindRunFailed,
			Status:  http.StatusInternalServerError,
			Message: message,
		}
	}

	return s.runResponse(ctx, threadID, run.ID)
}

// awaitRun polls the run until its status is terminal.
func (s *Service) awaitRun(ctx context.Context, threadID string, run *assistant.Run) (*assistant.Run, error) {
	for !run.Status.Terminal() {
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return nil, errUpstream("cancelled while waiting for run", err)
		}
		var err error
		run, err = s.gateway.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, errUpstream("failed to poll run status", err)
		}
	}
	return run, nil
}

// runResponse fetches the newest message the run produced and extracts
// its text.
func (s *Service) runResponse(ctx context.Context, threadID, runID string) (string, error) {
	messages, err := s.gateway.ListMessages(ctx, threadID, assistant.ListMessagesOptions{
		Order: "desc",
		RunID: runID,
		Limit: 1,
	})
	if err != nil {
		return "", errUpstream("failed to fetch assistant response", err)
	}

	if len(messages) == 0 || len(messages[0].Content) == 0 ||
		messages[0].Content[0].Type != "text" || messages[0].Content[0].Text == nil {
		log.Error().Str("thread_id", threadID).Str("run_id", runID).
			Msg("Assistant response format is unexpected")
		return "", &Error{
			Kind:    KindMalformedUpstreamResponse,
			Status:  http.StatusInternalServerError,
			Message: "assistant response had an unexpected format",
		}
	}

	return messages[0].Content[0].Text.Value, nil
}

// History returns the thread's full transcript, oldest first, exactly as
// the platform reports it.
func (s *Service) History(ctx context.Context, threadID string) ([]assistant.Message, error) {
	if !s.registry.IsLive(threadID) {
		return nil, errThreadNotFound(threadID)
	}

	messages, err := s.gateway.ListMessages(ctx, threadID, assistant.ListMessagesOptions{Order: "asc"})
	if err != nil {
		return nil, errUpstream("failed to fetch thread history", err)
	}
	return messages, nil
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/internal/assistant"
)

// fakeGateway is an in-memory stand-in for the assistant platform.
type fakeGateway struct {
	mu sync.Mutex

	threadErr   error
	messageErr  error
	runErr      error
	retrieveErr error
	listErr     error
	fileErr     error

	// statuses is the sequence of run states reported: CreateRun returns
	// the first, each RetrieveRun the next. Defaults to completed.
	statuses  []assistant.RunStatus
	statusIdx int
	lastError *assistant.RunError

	reply string // assistant text for a completed run

	threadsCreated int
	appended       []assistant.MessageCreateParams
	retrieves      int
	listOpts       []assistant.ListMessagesOptions
	transcript     []assistant.Message

	uploadedName    string
	uploadedPurpose string
	uploadedBytes   []byte
}

func (f *fakeGateway) CreateThread(ctx context.Context) (*assistant.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	f.threadsCreated++
	return &assistant.Thread{ID: fmt.Sprintf("thread_%03d", f.threadsCreated), Object: "thread"}, nil
}

func (f *fakeGateway) CreateMessage(ctx context.Context, threadID string, params assistant.MessageCreateParams) (*assistant.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	f.appended = append(f.appended, params)
	return &assistant.Message{ID: fmt.Sprintf("msg_%03d", len(f.appended)), Role: params.Role}, nil
}

func (f *fakeGateway) currentStatus() assistant.RunStatus {
	if len(f.statuses) == 0 {
		return assistant.RunStatusCompleted
	}
	idx := f.statusIdx
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	return f.statuses[idx]
}

func (f *fakeGateway) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &assistant.Run{
		ID:          "run_001",
		ThreadID:    threadID,
		AssistantID: assistantID,
		Status:      f.currentStatus(),
		LastError:   f.lastError,
	}, nil
}

func (f *fakeGateway) RetrieveRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	f.retrieves++
	f.statusIdx++
	return &assistant.Run{
		ID:        runID,
		ThreadID:  threadID,
		Status:    f.currentStatus(),
		LastError: f.lastError,
	}, nil
}

func (f *fakeGateway) ListMessages(ctx context.Context, threadID string, opts assistant.ListMessagesOptions) ([]assistant.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.listOpts = append(f.listOpts, opts)
	if opts.RunID != "" {
		return []assistant.Message{{
			ID:      "msg_reply",
			Role:    assistant.RoleAssistant,
			RunID:   opts.RunID,
			Content: []assistant.ContentPart{{Type: "text", Text: &assistant.TextContent{Value: f.reply}}},
		}}, nil
	}
	return f.transcript, nil
}

func (f *fakeGateway) CreateFile(ctx context.Context, content io.Reader, filename, purpose string) (*assistant.FileObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fileErr != nil {
		return nil, f.fileErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.uploadedName = filename
	f.uploadedPurpose = purpose
	f.uploadedBytes = data
	return &assistant.FileObject{ID: "file_abc123", Filename: filename, Purpose: purpose}, nil
}

func newTestService(gw *fakeGateway) (*Service, *Registry) {
	registry := NewRegistry()
	svc := NewService(gw, registry, ServiceOptions{AssistantID: "asst_test"})
	// No real waiting in tests.
	svc.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return svc, registry
}

func TestStartSession(t *testing.T) {
	t.Run("registers new thread", func(t *testing.T) {
		gw := &fakeGateway{}
		svc, registry := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "thread_001", threadID)
		assert.True(t, registry.IsLive(threadID))
	})

	t.Run("no registration on gateway failure", func(t *testing.T) {
		gw := &fakeGateway{threadErr: errors.New("connection refused")}
		svc, registry := newTestService(gw)

		_, err := svc.StartSession(context.Background())
		require.Error(t, err)

		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindUpstreamUnavailable, kind)
		assert.Equal(t, 500, HTTPStatus(err))
		assert.Equal(t, 0, registry.Len())
	})
}

func TestConverse(t *testing.T) {
	t.Run("unknown thread fails fast", func(t *testing.T) {
		gw := &fakeGateway{}
		svc, _ := newTestService(gw)

		_, err := svc.Converse(context.Background(), "thread_unknown", "hello", "")
		require.Error(t, err)

		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindThreadNotFound, kind)
		assert.Equal(t, 404, HTTPStatus(err))
		assert.Empty(t, gw.appended, "no message should reach the gateway")
	})

	t.Run("returns assistant reply", func(t *testing.T) {
		gw := &fakeGateway{reply: "hi"}
		svc, _ := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)

		reply, err := svc.Converse(context.Background(), threadID, "hello", "")
		require.NoError(t, err)
		assert.Equal(t, "hi", reply)

		require.Len(t, gw.appended, 1)
		assert.Equal(t, assistant.RoleUser, gw.appended[0].Role)
		assert.Equal(t, "hello", gw.appended[0].Content)
		assert.Empty(t, gw.appended[0].Attachments)

		// Response read-back is newest-first, limited to this run.
		require.Len(t, gw.listOpts, 1)
		assert.Equal(t, "desc", gw.listOpts[0].Order)
		assert.Equal(t, "run_001", gw.listOpts[0].RunID)
		assert.Equal(t, 1, gw.listOpts[0].Limit)
	})

	t.Run("binds attachment with document search", func(t *testing.T) {
		gw := &fakeGateway{reply: "summary"}
		svc, _ := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)

		_, err = svc.Converse(context.Background(), threadID, "describe", "file_ref_1")
		require.NoError(t, err)

		require.Len(t, gw.appended, 1)
		require.Len(t, gw.appended[0].Attachments, 1)
		assert.Equal(t, "file_ref_1", gw.appended[0].Attachments[0].FileID)
		assert.Contains(t, gw.appended[0].Attachments[0].Tools, assistant.ToolFileSearch)
	})

	t.Run("polls until terminal", func(t *testing.T) {
		gw := &fakeGateway{
			reply: "done",
			statuses: []assistant.RunStatus{
				assistant.RunStatusQueued,
				assistant.RunStatusQueued,
				assistant.RunStatusInProgress,
				assistant.RunStatusCompleted,
			},
		}
		svc, _ := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)

		reply, err := svc.Converse(context.Background(), threadID, "hello", "")
		require.NoError(t, err)
		assert.Equal(t, "done", reply)
		assert.Equal(t, 3, gw.retrieves)
	})

	t.Run("failed run surfaces as RunFailed", func(t *testing.T) {
		gw := &fakeGateway{
			statuses:  []assistant.RunStatus{assistant.RunStatusFailed},
			lastError: &assistant.RunError{Code: "server_error", Message: "model overloaded"},
		}
		svc, _ := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)

		_, err = svc.Converse(context.Background(), threadID, "hello", "")
		require.Error(t, err)

		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindRunFailed, kind)
		assert.Contains(t, err.Error(), "failed")
		assert.Contains(t, err.Error(), "model overloaded")
	})

	t.Run("expired run surfaces as RunFailed", func(t *testing.T) {
		gw := &fakeGateway{statuses: []assistant.RunStatus{assistant.RunStatusExpired}}
		svc, _ := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)

		_, err = svc.Converse(context.Background(), threadID, "hello", "")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindRunFailed, kind)
	})

	t.Run("propagates platform status code", func(t *testing.T) {
		gw := &fakeGateway{
			messageErr: &assistant.APIError{StatusCode: 429, Message: "rate limit exceeded"},
		}
		svc, _ := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)

		_, err = svc.Converse(context.Background(), threadID, "hello", "")
		require.Error(t, err)
		assert.Equal(t, 429, HTTPStatus(err))
		assert.Contains(t, err.Error(), "rate limit exceeded")
	})

	t.Run("non-text response is malformed", func(t *testing.T) {
		gw := &fakeGateway{}
		svc, _ := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)

		// Force a non-text content part on the read-back.
		svc.gateway = gatewayFunc{fakeGateway: gw, list: func(opts assistant.ListMessagesOptions) ([]assistant.Message, error) {
			return []assistant.Message{{
				ID:      "msg_img",
				Role:    assistant.RoleAssistant,
				Content: []assistant.ContentPart{{Type: "image_file"}},
			}}, nil
		}}

		_, err = svc.Converse(context.Background(), threadID, "hello", "")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindMalformedUpstreamResponse, kind)
	})

	t.Run("cancelled context aborts polling", func(t *testing.T) {
		gw := &fakeGateway{statuses: []assistant.RunStatus{assistant.RunStatusQueued}}
		svc, _ := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = svc.Converse(ctx, threadID, "hello", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// gatewayFunc overrides ListMessages on a fakeGateway.
type gatewayFunc struct {
	*fakeGateway
	list func(opts assistant.ListMessagesOptions) ([]assistant.Message, error)
}

func (g gatewayFunc) ListMessages(ctx context.Context, threadID string, opts assistant.ListMessagesOptions) ([]assistant.Message, error) {
	return g.list(opts)
}

func TestHistory(t *testing.T) {
	t.Run("unknown thread fails fast", func(t *testing.T) {
		gw := &fakeGateway{}
		svc, _ := newTestService(gw)

		_, err := svc.History(context.Background(), "thread_unknown")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindThreadNotFound, kind)
	})

	t.Run("returns transcript oldest first, verbatim", func(t *testing.T) {
		transcript := []assistant.Message{
			{ID: "msg_001", Role: assistant.RoleUser, CreatedAt: 100,
				Content: []assistant.ContentPart{{Type: "text", Text: &assistant.TextContent{Value: "hello"}}}},
			{ID: "msg_002", Role: assistant.RoleAssistant, CreatedAt: 101,
				Content: []assistant.ContentPart{{Type: "text", Text: &assistant.TextContent{Value: "hi"}}}},
			{ID: "msg_003", Role: assistant.RoleUser, CreatedAt: 150,
				Content: []assistant.ContentPart{{Type: "text", Text: &assistant.TextContent{Value: "thanks"}}}},
		}
		gw := &fakeGateway{transcript: transcript}
		svc, _ := newTestService(gw)

		threadID, err := svc.StartSession(context.Background())
		require.NoError(t, err)

		history, err := svc.History(context.Background(), threadID)
		require.NoError(t, err)

		if diff := cmp.Diff(transcript, history); diff != "" {
			t.Errorf("transcript mismatch (-want +got):\n%s", diff)
		}

		require.Len(t, gw.listOpts, 1)
		assert.Equal(t, "asc", gw.listOpts[0].Order)
		assert.Empty(t, gw.listOpts[0].RunID)
	})
}

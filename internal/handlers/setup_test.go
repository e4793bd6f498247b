package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/ava/internal/app/toolsetup"
	"github.com/xpanvictor/ava/internal/config"
	"github.com/xpanvictor/ava/internal/domains/pipeline"
	"github.com/xpanvictor/ava/internal/tools"
	"github.com/xpanvictor/ava/pkg/Logger"
	"github.com/xpanvictor/ava/pkg/assistant"
	xio "github.com/xpanvictor/ava/pkg/io"
	"github.com/xpanvictor/ava/pkg/io/registry"
	memoryregistry "github.com/xpanvictor/ava/pkg/io/registry/memoryRegistry"
)

type stubTranscriber struct {
	text string
	err  error
	gate chan struct{}
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if s.gate != nil {
		<-s.gate
	}
	return s.text, s.err
}

type stubChat struct{ reply *assistant.ChatReply }

func (s *stubChat) Complete(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatReply, error) {
	return s.reply, nil
}

type stubSpeech struct{}

func (stubSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("mp3"), nil
}

type stubImages struct{}

func (stubImages) Generate(ctx context.Context, prompt string) (*assistant.Image, error) {
	return &assistant.Image{URL: "https://img/1.png", RevisedPrompt: prompt}, nil
}

type stubStore struct{}

func (stubStore) Save(ctx context.Context, deviceID string, data []byte) (string, error) {
	return "/audio/" + deviceID + "/1.mp3", nil
}

type listJournal struct {
	mu   sync.Mutex
	recs []pipeline.RunRecord
}

func (j *listJournal) Record(ctx context.Context, rec pipeline.RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recs = append([]pipeline.RunRecord{rec}, j.recs...)
	return nil
}

func (j *listJournal) Recent(ctx context.Context, deviceID string, limit int) ([]pipeline.RunRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]pipeline.RunRecord, 0)
	for _, rec := range j.recs {
		if rec.DeviceID == deviceID && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

type testEnv struct {
	router      *gin.Engine
	reg         registry.DeviceRegistry
	transcriber *stubTranscriber
	chat        *stubChat
	journal     *listJournal
	orch        *pipeline.Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := Logger.Nop()

	env := &testEnv{
		reg:         memoryregistry.New(memoryregistry.Options{}),
		transcriber: &stubTranscriber{text: "hello"},
		chat:        &stubChat{reply: &assistant.ChatReply{Content: "hi there"}},
		journal:     &listJournal{},
	}
	toolReg, err := toolsetup.NewRegistry(&tools.ToolDependencies{ImageGenerator: stubImages{}})
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	pub := xio.New(env.reg, logger)
	env.orch = pipeline.NewOrchestrator(pipeline.Deps{
		Publisher:   &pub,
		Transcriber: env.transcriber,
		Chat:        env.chat,
		Dispatcher:  pipeline.NewDispatcher(toolReg, stubSpeech{}, stubStore{}, logger),
		Journal:     env.journal,
		Logger:      logger,
	}, config.PipelineConfig{MaxAudioBytes: 1 << 10})

	r := gin.New()
	r.Use(ErrorHandlerMiddleware(logger), DeviceCookieMiddleware(logger))
	api := r.Group("/api")
	NewAssistantHandler(env.orch, logger).RegisterRoutes(api)
	NewChatsHandler(env.reg, 50*time.Millisecond, logger).RegisterRoutes(api)
	NewRunsHandler(env.journal, logger).RegisterRoutes(api)
	env.router = r

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = env.orch.Wait(ctx)
	})
	return env
}

func uploadRequest(t *testing.T, url, field, deviceID string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "clip.webm")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(audio)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if deviceID != "" {
		req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: deviceID})
	}
	return req
}

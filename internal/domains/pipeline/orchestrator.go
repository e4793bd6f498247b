package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/ava/internal/config"
	"github.com/xpanvictor/ava/internal/metrics"
	"github.com/xpanvictor/ava/pkg/Logger"
	"github.com/xpanvictor/ava/pkg/assistant"
	xio "github.com/xpanvictor/ava/pkg/io"
	"github.com/xpanvictor/ava/pkg/io/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	scopeName      = "github.com/xpanvictor/ava/internal/domains/pipeline"
	AudioFieldName = "audio"
)

type Deps struct {
	Publisher   *xio.Publisher
	Transcriber assistant.Transcriber
	Chat        assistant.ChatCompleter
	Dispatcher  *Dispatcher
	Guard       Guard
	Journal     Journal
	Metrics     *metrics.Metrics
	Logger      *Logger.Logger
}

// Orchestrator drives one voice request from uploaded audio to a single
// assistant message, announcing every stage on the device stream.
type Orchestrator struct {
	publisher    *xio.Publisher
	transcriber  assistant.Transcriber
	chat         assistant.ChatCompleter
	dispatcher   *Dispatcher
	guard        Guard
	journal      Journal
	metrics      *metrics.Metrics
	logger       *Logger.Logger
	tracer       trace.Tracer
	systemPrompt string
	maxAudio     int64

	inflight sync.WaitGroup
}

type Result struct {
	RunID      uuid.UUID
	Transcript string
	Decision   DecisionKind
	Reply      events.Message
}

// run is the private state of one execution.
type run struct {
	id         uuid.UUID
	deviceID   string
	startedAt  time.Time
	state      RunState
	stageStart time.Time
	stageSpan  trace.Span
	decision   DecisionKind
	failCode   string
}

func NewOrchestrator(deps Deps, cfg config.PipelineConfig) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = Logger.Nop()
	}
	if deps.Guard == nil {
		deps.Guard = NewMemoryGuard()
	}
	if deps.Journal == nil {
		deps.Journal = NopJournal{}
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = config.DefaultSystemPrompt
	}
	maxAudio := cfg.MaxAudioBytes
	if maxAudio <= 0 {
		maxAudio = 25 << 20
	}
	return &Orchestrator{
		publisher:    deps.Publisher,
		transcriber:  deps.Transcriber,
		chat:         deps.Chat,
		dispatcher:   deps.Dispatcher,
		guard:        deps.Guard,
		journal:      deps.Journal,
		metrics:      deps.Metrics,
		logger:       deps.Logger.Named("pipeline"),
		tracer:       otel.Tracer(scopeName),
		systemPrompt: prompt,
		maxAudio:     maxAudio,
	}
}

// ReadAudio extracts the single audio field of a multipart upload.
func (o *Orchestrator) ReadAudio(r *multipart.Reader) ([]byte, error) {
	var audio []byte
	found := false
	for {
		part, err := r.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed multipart body: %v", ErrInvalidInput, err)
		}
		name := part.FormName()
		if name != AudioFieldName || found {
			part.Close()
			return nil, fmt.Errorf("%w: unexpected field %q", ErrInvalidInput, name)
		}
		audio, err = io.ReadAll(io.LimitReader(part, o.maxAudio+1))
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read audio: %v", ErrInvalidInput, err)
		}
		if int64(len(audio)) > o.maxAudio {
			return nil, fmt.Errorf("%w: audio exceeds %d bytes", ErrInvalidInput, o.maxAudio)
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("%w: missing %q field", ErrInvalidInput, AudioFieldName)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrInvalidInput)
	}
	return audio, nil
}

// RunMultipart reads the upload and runs the pipeline. Nothing is published
// when the upload is rejected.
func (o *Orchestrator) RunMultipart(ctx context.Context, deviceID string, r *multipart.Reader) (*Result, error) {
	audio, err := o.ReadAudio(r)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, deviceID, audio)
}

// Run executes the pipeline and waits for the outcome. Once started the run
// ignores cancellation of ctx.
func (o *Orchestrator) Run(ctx context.Context, deviceID string, audio []byte) (*Result, error) {
	release, err := o.admit(ctx, deviceID, audio)
	if err != nil {
		return nil, err
	}
	defer release()

	o.inflight.Add(1)
	defer o.inflight.Done()
	return o.execute(context.WithoutCancel(ctx), uuid.New(), deviceID, audio)
}

// Start admits the run and executes it in the background. Results are only
// observable on the device stream.
func (o *Orchestrator) Start(ctx context.Context, deviceID string, audio []byte) (uuid.UUID, error) {
	release, err := o.admit(ctx, deviceID, audio)
	if err != nil {
		return uuid.Nil, err
	}

	runID := uuid.New()
	detached := context.WithoutCancel(ctx)
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		defer release()
		_, _ = o.execute(detached, runID, deviceID, audio)
	}()
	return runID, nil
}

// Wait blocks until in-flight runs finish or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) admit(ctx context.Context, deviceID string, audio []byte) (func(), error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrInvalidInput)
	}
	if int64(len(audio)) > o.maxAudio {
		return nil, fmt.Errorf("%w: audio exceeds %d bytes", ErrInvalidInput, o.maxAudio)
	}
	release, err := o.guard.Acquire(ctx, deviceID)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			o.logger.Infof("rejected run for busy device %s", deviceID)
		}
		return nil, err
	}
	return release, nil
}

func (o *Orchestrator) execute(ctx context.Context, runID uuid.UUID, deviceID string, audio []byte) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("ava.run_id", runID.String()),
		attribute.String("ava.device_id", deviceID),
		attribute.Int("ava.audio_bytes", len(audio)),
	))
	defer span.End()

	sink := o.publisher.Open(deviceID)
	defer sink.Close()

	now := time.Now()
	r := &run{id: runID, deviceID: deviceID, startedAt: now, state: StateIdle, stageStart: now}
	machine := newRunMachine(func(ctx context.Context, state RunState) {
		o.enter(ctx, sink, r, state)
	})
	fire := func(ev RunEvent) error {
		if err := machine.Event(ctx, string(ev)); err != nil {
			return fmt.Errorf("transition %s from %s: %w", ev, r.state, err)
		}
		return nil
	}

	result, err := o.advance(ctx, sink, r, fire, audio)
	if err != nil {
		r.failCode = Code(err)
		if ferr := fire(EventFail); ferr != nil {
			o.logger.Errorf("run %s could not enter failed state: %v", runID, ferr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, r.failCode)
	}
	o.finish(ctx, r, err)
	return result, err
}

func (o *Orchestrator) advance(
	ctx context.Context,
	sink *xio.Sink,
	r *run,
	fire func(RunEvent) error,
	audio []byte,
) (*Result, error) {
	if err := fire(EventReceive); err != nil {
		return nil, err
	}
	if err := fire(EventTranscribe); err != nil {
		return nil, err
	}
	transcript, err := o.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, collaborator("transcribe", err)
	}
	if err := sink.Send(ctx, events.UserText(transcript)); err != nil {
		return nil, err
	}

	if err := fire(EventDecide); err != nil {
		return nil, err
	}
	reply, err := o.chat.Complete(ctx, assistant.ChatRequest{
		Msgs: []assistant.AssistantMessage{
			{MsgRole: assistant.SYSTEM, Content: o.systemPrompt},
			{MsgRole: assistant.USER, Content: transcript},
		},
		AvailableTools: o.dispatcher.Tools(),
	})
	if err != nil {
		return nil, collaborator("complete", err)
	}
	decision, err := o.dispatcher.Decide(reply)
	if err != nil {
		return nil, err
	}
	r.decision = decision.Kind

	next := EventSynthesize
	if decision.Kind == DecisionToolCall {
		next = EventInvokeTool
	}
	if err := fire(next); err != nil {
		return nil, err
	}
	msg, err := o.dispatcher.Invoke(ctx, r.deviceID, decision)
	if err != nil {
		return nil, err
	}
	if err := sink.Send(ctx, msg); err != nil {
		return nil, err
	}

	if err := fire(EventFinish); err != nil {
		return nil, err
	}
	return &Result{RunID: r.id, Transcript: transcript, Decision: decision.Kind, Reply: msg}, nil
}

// enter runs on every state change: closes out the previous stage and
// announces the new one.
func (o *Orchestrator) enter(ctx context.Context, sink *xio.Sink, r *run, state RunState) {
	now := time.Now()
	if r.state != StateIdle {
		o.metrics.ObserveStage(string(r.state), now.Sub(r.stageStart))
	}
	if r.stageSpan != nil {
		r.stageSpan.End()
		r.stageSpan = nil
	}
	r.state = state
	r.stageStart = now
	if !state.Terminal() {
		_, r.stageSpan = o.tracer.Start(ctx, "pipeline."+string(state))
	}

	var ev events.Event = events.NewSignal(state.Stage())
	if state == StateFailed {
		ev = events.NewFailure(r.failCode)
	}
	if err := sink.Send(ctx, ev); err != nil {
		o.logger.Errorf("run %s: failed to announce %s: %v", r.id, state, err)
	}
}

func (o *Orchestrator) finish(ctx context.Context, r *run, err error) {
	if r.stageSpan != nil {
		r.stageSpan.End()
	}
	code := Code(err)
	elapsed := time.Since(r.startedAt)
	o.metrics.RunFinished(code)

	rec := RunRecord{
		ID:         r.id,
		DeviceID:   r.deviceID,
		FinalState: r.state,
		Decision:   r.decision,
		ErrorCode:  "",
		StartedAt:  r.startedAt,
		Duration:   elapsed,
	}
	if err != nil {
		rec.ErrorCode = code
		o.logger.Warnf("run %s for device %s failed with %s after %s: %v", r.id, r.deviceID, code, elapsed, err)
	} else {
		o.logger.Infof("run %s for device %s done (%s) in %s", r.id, r.deviceID, r.decision, elapsed)
	}
	if jerr := o.journal.Record(ctx, rec); jerr != nil {
		o.logger.Warnf("run %s: journal write failed: %v", r.id, jerr)
	}
}

package pipeline

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/xpanvictor/ava/pkg/io/events"
)

type RunState string

const (
	StateIdle         RunState = "idle"
	StateReceiving    RunState = "receiving"
	StateTranscribing RunState = "transcribing"
	StateDeciding     RunState = "deciding"
	StateToolInvoking RunState = "tool_invoking"
	StateSynthesizing RunState = "synthesizing"
	StateDone         RunState = "done"
	StateFailed       RunState = "failed"
)

type RunEvent string

const (
	EventReceive    RunEvent = "receive"
	EventTranscribe RunEvent = "transcribe"
	EventDecide     RunEvent = "decide"
	EventInvokeTool RunEvent = "invoke_tool"
	EventSynthesize RunEvent = "synthesize"
	EventFinish     RunEvent = "finish"
	EventFail       RunEvent = "fail"
)

var stageOf = map[RunState]events.Stage{
	StateReceiving:    events.UploadReceived,
	StateTranscribing: events.Transcribing,
	StateDeciding:     events.Deciding,
	StateToolInvoking: events.ToolInvoking,
	StateSynthesizing: events.Synthesizing,
	StateDone:         events.Done,
	StateFailed:       events.Failed,
}

func (s RunState) Stage() events.Stage { return stageOf[s] }

func (s RunState) Terminal() bool { return s == StateDone || s == StateFailed }

// newRunMachine builds the lifecycle of one run. onEnter sees every state
// entered after idle, in order.
func newRunMachine(onEnter func(ctx context.Context, state RunState)) *fsm.FSM {
	live := []string{
		string(StateIdle),
		string(StateReceiving),
		string(StateTranscribing),
		string(StateDeciding),
		string(StateToolInvoking),
		string(StateSynthesizing),
	}
	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: string(EventReceive), Src: []string{string(StateIdle)}, Dst: string(StateReceiving)},
			{Name: string(EventTranscribe), Src: []string{string(StateReceiving)}, Dst: string(StateTranscribing)},
			{Name: string(EventDecide), Src: []string{string(StateTranscribing)}, Dst: string(StateDeciding)},
			{Name: string(EventInvokeTool), Src: []string{string(StateDeciding)}, Dst: string(StateToolInvoking)},
			{Name: string(EventSynthesize), Src: []string{string(StateDeciding)}, Dst: string(StateSynthesizing)},
			{Name: string(EventFinish), Src: []string{string(StateToolInvoking), string(StateSynthesizing)}, Dst: string(StateDone)},
			{Name: string(EventFail), Src: live, Dst: string(StateFailed)},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				onEnter(ctx, RunState(e.Dst))
			},
		},
	)
}

package main

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"json2sip/sipstack"
)

// Event shapes of the outbound line protocol. One JSON object per line,
// flushed immediately so the parent process never waits on a buffer.
type readyEvent struct {
	Event string `json:"event"`
}

type regStateEvent struct {
	Event  string `json:"event"`
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

type incomingCallEvent struct {
	Event  string `json:"event"`
	CallID int    `json:"callId"`
	Number string `json:"number"`
	Name   string `json:"name"`
}

type callStateEvent struct {
	Event  string `json:"event"`
	CallID int    `json:"callId"`
	State  string `json:"state"`
	Number string `json:"number"`
}

type audioDataEvent struct {
	Event   string `json:"event"`
	Speaker string `json:"speaker"`
	PCM     string `json:"pcm"`
}

type captureStateEvent struct {
	Event   string `json:"event"`
	Enabled bool   `json:"enabled"`
}

type errorEvent struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

// Emitter serializes events onto the outbound stream. Both the command
// loop and the stack's media threads emit through it, so writes are
// guarded by a mutex and each event is written and flushed as one line.
type Emitter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: bufio.NewWriter(w)}
}

func (e *Emitter) emit(event string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		coreLog.Warnf("failed to marshal %s event: %v", event, err)
		return
	}
	e.mu.Lock()
	e.w.Write(data)
	e.w.WriteByte('\n')
	if err := e.w.Flush(); err != nil {
		coreLog.Warnf("failed to write %s event: %v", event, err)
	}
	e.mu.Unlock()
	eventsEmitted.WithLabelValues(event).Inc()
}

func (e *Emitter) Ready() {
	e.emit("ready", readyEvent{Event: "ready"})
}

func (e *Emitter) RegState(code int, reason string) {
	e.emit("regState", regStateEvent{Event: "regState", Code: code, Reason: reason})
}

func (e *Emitter) IncomingCall(call sipstack.CallID, number string) {
	e.emit("incomingCall", incomingCallEvent{Event: "incomingCall", CallID: int(call), Number: number})
}

func (e *Emitter) CallState(call sipstack.CallID, state, number string) {
	e.emit("callState", callStateEvent{Event: "callState", CallID: int(call), State: state, Number: number})
}

func (e *Emitter) AudioData(speaker, pcm string) {
	e.emit("audioData", audioDataEvent{Event: "audioData", Speaker: speaker, PCM: pcm})
}

func (e *Emitter) CaptureState(enabled bool) {
	e.emit("audioCaptureState", captureStateEvent{Event: "audioCaptureState", Enabled: enabled})
}

func (e *Emitter) Error(reason string) {
	e.emit("error", errorEvent{Event: "error", Reason: reason})
}

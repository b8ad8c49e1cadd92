package main

import (
	"github.com/tevino/abool"

	"json2sip/sipstack"
)

// capturePort is a capture-only bridge endpoint. The bridge pushes every
// frame routed to its slot into PutFrame; the port never supplies audio
// back. Two instances exist per process, one on the call's receive path
// ("remote") and one on the microphone path ("local").
type capturePort struct {
	speaker string
	enabled *abool.AtomicBool
	emitter *Emitter
	enc     frameEncoder
}

func newCapturePort(speaker string, enabled *abool.AtomicBool, emitter *Emitter, maxFrame int) *capturePort {
	return &capturePort{
		speaker: speaker,
		enabled: enabled,
		emitter: emitter,
		enc:     frameEncoder{max: maxFrame},
	}
}

// PutFrame runs on the stack's media thread: no blocking, no retries.
// A refused encode drops the frame and the call carries on.
func (p *capturePort) PutFrame(f sipstack.Frame) {
	if !p.enabled.IsSet() || f.Type != sipstack.FrameAudio || len(f.Data) == 0 {
		return
	}
	b64, ok := p.enc.encode(f.Data)
	if !ok {
		return
	}
	p.emitter.AudioData(p.speaker, b64)
	framesCaptured.WithLabelValues(p.speaker).Inc()
}

// GetFrame always reports silence; capture ports are sinks, never sources.
func (p *capturePort) GetFrame() sipstack.Frame {
	return sipstack.Frame{Type: sipstack.FrameNone}
}

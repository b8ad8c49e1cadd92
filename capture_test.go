package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tevino/abool"

	"json2sip/sipstack"
)

func newTestPort(speaker string) (*capturePort, *abool.AtomicBool, *bytes.Buffer) {
	out := &bytes.Buffer{}
	flag := abool.New()
	return newCapturePort(speaker, flag, NewEmitter(out), 4096), flag, out
}

func TestCapturePortEmitsOneEventPerFrame(t *testing.T) {
	port, flag, out := newTestPort("remote")
	flag.Set()

	pcm := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	port.PutFrame(sipstack.Frame{Type: sipstack.FrameAudio, Data: pcm})
	port.PutFrame(sipstack.Frame{Type: sipstack.FrameAudio, Data: pcm})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var ev audioDataEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.Equal(t, "audioData", ev.Event)
		assert.Equal(t, "remote", ev.Speaker)
		decoded, err := base64.StdEncoding.DecodeString(ev.PCM)
		require.NoError(t, err)
		assert.Equal(t, pcm, decoded)
	}
}

func TestCapturePortIsSilentWhenDisabled(t *testing.T) {
	port, flag, out := newTestPort("local")

	for i := 0; i < 100; i++ {
		port.PutFrame(sipstack.Frame{Type: sipstack.FrameAudio, Data: []byte{1, 2, 3}})
	}
	assert.Zero(t, out.Len())

	// toggling back on resumes with the next delivered frame
	flag.Set()
	port.PutFrame(sipstack.Frame{Type: sipstack.FrameAudio, Data: []byte{1, 2, 3}})
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))

	flag.UnSet()
	port.PutFrame(sipstack.Frame{Type: sipstack.FrameAudio, Data: []byte{1, 2, 3}})
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestCapturePortSkipsEmptyAndNonAudioFrames(t *testing.T) {
	port, flag, out := newTestPort("remote")
	flag.Set()

	port.PutFrame(sipstack.Frame{Type: sipstack.FrameAudio})
	port.PutFrame(sipstack.Frame{Type: sipstack.FrameNone, Data: []byte{1, 2}})

	assert.Zero(t, out.Len())
}

func TestCapturePortNeverSuppliesAudio(t *testing.T) {
	port, flag, _ := newTestPort("remote")
	flag.Set()

	frame := port.GetFrame()
	assert.Equal(t, sipstack.FrameNone, frame.Type)
	assert.Empty(t, frame.Data)
}

func TestCapturePortDropsOversizedFrameWithoutEvent(t *testing.T) {
	out := &bytes.Buffer{}
	flag := abool.New()
	flag.Set()
	port := newCapturePort("remote", flag, NewEmitter(out), 4)

	port.PutFrame(sipstack.Frame{Type: sipstack.FrameAudio, Data: make([]byte, 5)})
	assert.Zero(t, out.Len())

	port.PutFrame(sipstack.Frame{Type: sipstack.FrameAudio, Data: make([]byte, 4)})
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

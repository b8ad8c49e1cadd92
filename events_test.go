package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterWritesOneFlushedLinePerEvent(t *testing.T) {
	out := &bytes.Buffer{}
	e := NewEmitter(out)

	e.Ready()
	e.RegState(200, "")
	e.IncomingCall(3, "sip:bob@example.com")
	e.CallState(3, "confirmed", "sip:bob@example.com")
	e.AudioData("remote", "AAEC")
	e.CaptureState(true)
	e.Error("boom")

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 7)

	var ready map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ready))
	assert.Equal(t, map[string]interface{}{"event": "ready"}, ready)

	var incoming map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &incoming))
	assert.Equal(t, "incomingCall", incoming["event"])
	assert.Equal(t, float64(3), incoming["callId"])
	assert.Equal(t, "sip:bob@example.com", incoming["number"])
	// the name field is always present, even when empty
	name, present := incoming["name"]
	assert.True(t, present)
	assert.Equal(t, "", name)

	var audio map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &audio))
	assert.Equal(t, "remote", audio["speaker"])
	assert.Equal(t, "AAEC", audio["pcm"])
}

// Concurrent writers, as on a live call where both capture ports and the
// command loop emit at once, must never interleave partial lines.
func TestEmitterSerializesConcurrentWriters(t *testing.T) {
	out := &bytes.Buffer{}
	e := NewEmitter(out)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(speaker string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e.AudioData(speaker, strings.Repeat("QUJD", 64))
			}
		}([]string{"remote", "local"}[i%2])
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 8*50)
	for _, line := range lines {
		var ev audioDataEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev), "line %q", line)
		assert.Equal(t, "audioData", ev.Event)
	}
}

func TestEmitterEventShapes(t *testing.T) {
	out := &bytes.Buffer{}
	e := NewEmitter(out)

	e.RegState(-1, "Account add failed")
	e.CaptureState(false)
	e.Error("Failed to initialize SIP engine")

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"event":"regState","code":-1,"reason":"Account add failed"}`, lines[0])
	assert.JSONEq(t, `{"event":"audioCaptureState","enabled":false}`, lines[1])
	assert.JSONEq(t, `{"event":"error","reason":"Failed to initialize SIP engine"}`, lines[2])
}

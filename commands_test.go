package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandFields(t *testing.T) {
	c, ok := parseCommand([]byte(`{"cmd":"configure","server":"sip.example.com","username":"alice","password":"secret","transport":"tcp"}`))
	require.True(t, ok)
	assert.Equal(t, "configure", c.Cmd)
	assert.Equal(t, "sip.example.com", c.Server)
	assert.Equal(t, "alice", c.Username)
	assert.Equal(t, "secret", c.Password)
	assert.Equal(t, "tcp", c.Transport)
	// absent fields default rather than fail
	assert.Equal(t, "", c.Domain)
	assert.Equal(t, "", c.DisplayName)
	assert.False(t, c.Enabled)
}

func TestParseCommandBooleans(t *testing.T) {
	c, ok := parseCommand([]byte(`{"cmd":"toggleMute","muted":true}`))
	require.True(t, ok)
	assert.True(t, c.Muted)

	c, ok = parseCommand([]byte(`{"cmd":"enableAudioCapture","enabled":false}`))
	require.True(t, ok)
	assert.False(t, c.Enabled)
}

func TestParseCommandRejectsGarbage(t *testing.T) {
	_, ok := parseCommand([]byte(`{"cmd":`))
	assert.False(t, ok)

	_, ok = parseCommand([]byte(`plain text`))
	assert.False(t, ok)

	// a JSON object without a cmd field selects nothing
	_, ok = parseCommand([]byte(`{"number":"123"}`))
	assert.False(t, ok)
}

func TestMetricLabelCollapsesUnknownCommands(t *testing.T) {
	assert.Equal(t, "makeCall", metricLabel("makeCall"))
	assert.Equal(t, "quit", metricLabel("quit"))
	assert.Equal(t, "unknown", metricLabel("selfDestruct"))
	assert.Equal(t, "unknown", metricLabel(""))
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings(ini.Empty())
	require.NoError(t, err)

	assert.Equal(t, "json2sip/1.0", s.UserAgent())
	assert.Equal(t, 4, s.MaxCalls())
	assert.Equal(t, 16000, s.ClockRate())
	assert.Equal(t, 1, s.Channels())
	assert.Equal(t, 16, s.BitsPerSample())
	assert.Equal(t, 320, s.SamplesPerFrame())
	assert.Equal(t, 4096, s.MaxLineBytes())
	assert.Equal(t, "", s.MetricsListen())
}

func TestLoadSettingsOverrides(t *testing.T) {
	cfg, err := ini.Load([]byte("[sip]\nuser_agent = phone/2.0\n[audio]\nclock_rate = 8000\n[metrics]\nlisten = 127.0.0.1:9101\n"))
	require.NoError(t, err)

	s, err := LoadSettings(cfg)
	require.NoError(t, err)
	assert.Equal(t, "phone/2.0", s.UserAgent())
	assert.Equal(t, 8000, s.ClockRate())
	assert.Equal(t, "127.0.0.1:9101", s.MetricsListen())
}

func TestLoadSettingsRejectsBadAudioFormat(t *testing.T) {
	cfg, err := ini.Load([]byte("[audio]\nclock_rate = 0\n"))
	require.NoError(t, err)

	_, err = LoadSettings(cfg)
	assert.Error(t, err)
}

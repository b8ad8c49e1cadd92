package main

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameEncoderRoundTrip(t *testing.T) {
	enc := &frameEncoder{}
	for n := 0; n <= 1000; n++ {
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = byte(i * 7)
		}
		out, ok := enc.encode(buf)
		require.True(t, ok)
		decoded, err := base64.StdEncoding.DecodeString(out)
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, buf, decoded, "length %d", n)
	}
}

func TestFrameEncoderOutputLength(t *testing.T) {
	enc := &frameEncoder{}
	for n := 0; n <= 1000; n++ {
		out, ok := enc.encode(make([]byte, n))
		require.True(t, ok)
		assert.Equal(t, (n+2)/3*4, len(out), "length %d", n)
	}
}

func TestFrameEncoderReusesBufferSafely(t *testing.T) {
	enc := &frameEncoder{}

	first, ok := enc.encode([]byte{1, 2, 3, 4, 5, 6})
	require.True(t, ok)
	second, ok := enc.encode([]byte{9, 9})
	require.True(t, ok)

	// earlier results must not be clobbered by buffer reuse
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4, 5, 6}), first)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{9, 9}), second)
}

func TestFrameEncoderDropsOversizedFrames(t *testing.T) {
	enc := &frameEncoder{max: 8}

	_, ok := enc.encode(make([]byte, 9))
	assert.False(t, ok)

	out, ok := enc.encode(make([]byte, 8))
	require.True(t, ok)
	assert.NotEmpty(t, out)
}

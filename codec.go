package main

import "encoding/base64"

// frameEncoder turns raw PCM frames into their standard base64 form.
// The output buffer is reused between frames so the steady-state audio
// path allocates only the resulting string.
type frameEncoder struct {
	buf []byte
	max int // largest accepted frame, 0 means unlimited
}

// encode returns the padded base64 form of pcm. A frame larger than the
// configured maximum is refused; the caller drops it instead of letting
// the audio path grow without bound.
func (e *frameEncoder) encode(pcm []byte) (string, bool) {
	if e.max > 0 && len(pcm) > e.max {
		return "", false
	}
	n := base64.StdEncoding.EncodedLen(len(pcm))
	if cap(e.buf) < n {
		e.buf = make([]byte, n)
	}
	e.buf = e.buf[:n]
	base64.StdEncoding.Encode(e.buf, pcm)
	return string(e.buf), true
}

package main

import (
	"fmt"

	ini "gopkg.in/ini.v1"
)

// Settings holds process configuration loaded from settings.ini. The
// operator drives everything else over stdin, so every key has a usable
// default and a missing file is fine.
type Settings struct {
	userAgent     string
	maxCalls      int
	publicAddress string
	stackLogLevel int

	clockRate       int
	channels        int
	bitsPerSample   int
	samplesPerFrame int
	maxFrameBytes   int

	maxLineBytes int

	metricsListen string
}

// LoadSettings reads configuration from the ini file and validates the
// audio format.
func LoadSettings(cfg *ini.File) (*Settings, error) {
	s := &Settings{}

	sec := cfg.Section("sip")
	s.userAgent = sec.Key("user_agent").MustString("json2sip/1.0")
	s.maxCalls = sec.Key("max_calls").MustInt(4)
	s.publicAddress = sec.Key("public_address").String()
	s.stackLogLevel = sec.Key("stack_log_level").MustInt(4)

	sec = cfg.Section("audio")
	s.clockRate = sec.Key("clock_rate").MustInt(16000)
	s.channels = sec.Key("channels").MustInt(1)
	s.bitsPerSample = sec.Key("bits_per_sample").MustInt(16)
	s.samplesPerFrame = sec.Key("samples_per_frame").MustInt(320)
	s.maxFrameBytes = sec.Key("max_frame_bytes").MustInt(4096)

	sec = cfg.Section("protocol")
	s.maxLineBytes = sec.Key("max_line").MustInt(4096)

	sec = cfg.Section("metrics")
	s.metricsListen = sec.Key("listen").String()

	if s.clockRate <= 0 || s.channels <= 0 || s.bitsPerSample <= 0 || s.samplesPerFrame <= 0 {
		return nil, fmt.Errorf("audio format settings must be positive")
	}
	if s.maxLineBytes <= 0 {
		return nil, fmt.Errorf("protocol max_line must be positive")
	}

	return s, nil
}

func (s *Settings) UserAgent() string     { return s.userAgent }
func (s *Settings) MaxCalls() int         { return s.maxCalls }
func (s *Settings) PublicAddress() string { return s.publicAddress }
func (s *Settings) StackLogLevel() int    { return s.stackLogLevel }

func (s *Settings) ClockRate() int       { return s.clockRate }
func (s *Settings) Channels() int        { return s.channels }
func (s *Settings) BitsPerSample() int   { return s.bitsPerSample }
func (s *Settings) SamplesPerFrame() int { return s.samplesPerFrame }
func (s *Settings) MaxFrameBytes() int   { return s.maxFrameBytes }

func (s *Settings) MaxLineBytes() int { return s.maxLineBytes }

func (s *Settings) MetricsListen() string { return s.metricsListen }

package main

import "encoding/json"

// command is the typed view over one input line. Fields absent from the
// line stay at their zero value; every handler degrades to a no-op on
// missing data instead of failing the controller.
type command struct {
	Cmd string `json:"cmd"`

	// configure
	Server      string `json:"server"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Domain      string `json:"domain"`
	Transport   string `json:"transport"`
	DisplayName string `json:"displayName"`

	// makeCall, transfer
	Number string `json:"number"`

	// dtmf
	Digit string `json:"digit"`

	// toggleMute, toggleHold, enableAudioCapture
	Muted   bool `json:"muted"`
	Held    bool `json:"held"`
	Enabled bool `json:"enabled"`
}

// parseCommand decodes one line of the inbound protocol. Malformed JSON
// and lines without a cmd field are reported as not ok and ignored by
// the caller.
func parseCommand(line []byte) (command, bool) {
	var c command
	if err := json.Unmarshal(line, &c); err != nil {
		coreLog.Debugf("ignoring malformed command line: %v", err)
		return command{}, false
	}
	return c, c.Cmd != ""
}

// Handle executes one command against the session. It returns false
// once the loop should stop reading further input.
func (e *Engine) Handle(line []byte) bool {
	c, ok := parseCommand(line)
	if !ok {
		return true
	}
	commandsHandled.WithLabelValues(metricLabel(c.Cmd)).Inc()

	switch c.Cmd {
	case "configure":
		e.configure(c)
	case "makeCall":
		e.makeCall(c.Number)
	case "hangup":
		e.hangup()
	case "answer":
		e.answer()
	case "decline":
		e.decline()
	case "toggleMute":
		e.toggleMute(c.Muted)
	case "toggleHold":
		e.toggleHold(c.Held)
	case "dtmf":
		e.dtmf(c.Digit)
	case "transfer":
		e.transfer(c.Number)
	case "enableAudioCapture":
		e.enableCapture(c.Enabled)
	case "quit":
		return false
	default:
		// fire-and-forget protocol: unknown commands are dropped silently
		coreLog.Debugf("unknown command %q", c.Cmd)
	}
	return true
}

// metricLabel collapses unrecognized command names into a single label
// so arbitrary input cannot grow the counter's cardinality.
func metricLabel(cmd string) string {
	switch cmd {
	case "configure", "makeCall", "hangup", "answer", "decline",
		"toggleMute", "toggleHold", "dtmf", "transfer",
		"enableAudioCapture", "quit":
		return cmd
	}
	return "unknown"
}

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
	"github.com/tevino/abool"

	"json2sip/sipstack"
)

// Call lifecycle states. The machine guards against out-of-order stack
// callbacks: a transition that would move the tracked call backwards is
// refused and the state already reached keeps being reported.
const (
	stateNone         = "none"
	stateIncoming     = "incoming"
	stateCalling      = "calling"
	stateEarly        = "early"
	stateConnecting   = "connecting"
	stateConfirmed    = "confirmed"
	stateDisconnected = "disconnected"
)

const (
	eventRing       = "ring"
	eventDial       = "dial"
	eventProgress   = "progress"
	eventConnect    = "connect"
	eventConfirm    = "confirm"
	eventDisconnect = "disconnect"
)

func newCallFSM(initial string) *fsm.FSM {
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: eventRing, Src: []string{stateNone}, Dst: stateIncoming},
			{Name: eventDial, Src: []string{stateNone}, Dst: stateCalling},
			{Name: eventProgress, Src: []string{stateIncoming, stateCalling}, Dst: stateEarly},
			{Name: eventConnect, Src: []string{stateIncoming, stateCalling, stateEarly}, Dst: stateConnecting},
			{Name: eventConfirm, Src: []string{stateIncoming, stateCalling, stateEarly, stateConnecting}, Dst: stateConfirmed},
			{Name: eventDisconnect, Src: []string{stateNone, stateIncoming, stateCalling, stateEarly, stateConnecting, stateConfirmed}, Dst: stateDisconnected},
		},
		fsm.Callbacks{},
	)
}

// slotPair is a directed bridge connection.
type slotPair struct {
	src, dst sipstack.Slot
}

// trackedCall is the single call this controller manages.
type trackedCall struct {
	id         sipstack.CallID
	remote     string
	lifecycle  *fsm.FSM
	mediaSlots []sipstack.Slot
	wired      map[slotPair]bool
}

func newTrackedCall(id sipstack.CallID, remote, initial string) *trackedCall {
	return &trackedCall{
		id:        id,
		remote:    remote,
		lifecycle: newCallFSM(initial),
		wired:     make(map[slotPair]bool),
	}
}

// Engine is the call-session controller. It owns the tracked account and
// call, translates stack callbacks into protocol events and protocol
// commands into stack operations. The command loop and the stack's
// worker threads both touch it, so session state sits behind one mutex;
// the audio path only ever reads the atomic capture flag.
type Engine struct {
	stack    sipstack.Stack
	emitter  *Emitter
	settings *Settings
	capture  *abool.AtomicBool

	mu      sync.Mutex
	account sipstack.AccountID
	call    *trackedCall

	remoteTap sipstack.Slot
	localTap  sipstack.Slot
}

func NewEngine(stack sipstack.Stack, emitter *Emitter, settings *Settings) *Engine {
	return &Engine{
		stack:     stack,
		emitter:   emitter,
		settings:  settings,
		capture:   abool.New(),
		account:   sipstack.InvalidAccount,
		remoteTap: sipstack.InvalidSlot,
		localTap:  sipstack.InvalidSlot,
	}
}

// Start brings up the stack and attaches the two capture ports. The tap
// slots live for the rest of the process; calls connect and disconnect
// against them but they are never recreated.
func (e *Engine) Start() error {
	if err := e.stack.Start(e); err != nil {
		return fmt.Errorf("start stack: %w", err)
	}

	format := sipstack.PortFormat{
		ClockRate:       e.settings.ClockRate(),
		Channels:        e.settings.Channels(),
		BitsPerSample:   e.settings.BitsPerSample(),
		SamplesPerFrame: e.settings.SamplesPerFrame(),
	}
	maxFrame := e.settings.MaxFrameBytes()

	remote, err := e.stack.AddPort(newCapturePort("remote", e.capture, e.emitter, maxFrame), format)
	if err != nil {
		return fmt.Errorf("attach remote capture port: %w", err)
	}
	e.remoteTap = remote

	local, err := e.stack.AddPort(newCapturePort("local", e.capture, e.emitter, maxFrame), format)
	if err != nil {
		return fmt.Errorf("attach local capture port: %w", err)
	}
	e.localTap = local

	coreLog.Infof("capture ports attached: remote=%d local=%d", remote, local)
	return nil
}

// Close tears the session down: the account is removed before the stack
// is released.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.account != sipstack.InvalidAccount {
		if err := e.stack.RemoveAccount(e.account); err != nil {
			coreLog.Warnf("account removal on shutdown failed: %v", err)
		}
		e.account = sipstack.InvalidAccount
	}
	e.mu.Unlock()
	return e.stack.Close()
}

// configure replaces the tracked account. An existing account is torn
// down first so the stack never holds two registrations for us.
func (e *Engine) configure(c command) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.account != sipstack.InvalidAccount {
		if err := e.stack.RemoveAccount(e.account); err != nil {
			coreLog.Warnf("failed to remove previous account: %v", err)
		}
		e.account = sipstack.InvalidAccount
	}

	domain := c.Domain
	if domain == "" {
		domain = c.Server
	}

	cfg := sipstack.AccountConfig{
		IDURI:        identityURI(c.DisplayName, c.Username, domain),
		RegistrarURI: "sip:" + c.Server,
		Username:     c.Username,
		Password:     c.Password,
		Realm:        "*",
		Scheme:       "digest",
		Transport:    c.Transport,
	}

	acc, err := e.stack.AddAccount(cfg)
	if err != nil {
		coreLog.Warnf("account add failed: %v", err)
		e.emitter.RegState(-1, "Account add failed")
		return
	}
	e.account = acc
	coreLog.Infof("account %d configured as %s", acc, cfg.IDURI)
}

// makeCall dials number@<account domain> when an account exists, or the
// bare number otherwise. The new call becomes the tracked call.
func (e *Engine) makeCall(number string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	uri := "sip:" + number
	if e.account != sipstack.InvalidAccount {
		if accURI, err := e.stack.AccountURI(e.account); err == nil {
			if domain := uriDomain(accURI); domain != "" {
				uri = fmt.Sprintf("sip:%s@%s", number, domain)
			}
		} else {
			coreLog.Warnf("account info unavailable: %v", err)
		}
	}

	id, err := e.stack.Call(e.account, uri)
	if err != nil {
		coreLog.Warnf("call to %s failed: %v", uri, err)
		return
	}
	call := newTrackedCall(id, uri, stateNone)
	_ = call.lifecycle.Event(context.Background(), eventDial)
	e.call = call
	callsTracked.Inc()
	coreLog.Infof("dialing %s as call %d", uri, id)
}

func (e *Engine) hangup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.call == nil {
		return
	}
	if err := e.stack.Hangup(e.call.id, 0); err != nil {
		coreLog.Warnf("hangup failed: %v", err)
	}
}

func (e *Engine) answer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.call == nil {
		return
	}
	if err := e.stack.Answer(e.call.id, 200); err != nil {
		coreLog.Warnf("answer failed: %v", err)
	}
}

func (e *Engine) decline() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.call == nil {
		return
	}
	if err := e.stack.Hangup(e.call.id, 486); err != nil {
		coreLog.Warnf("decline failed: %v", err)
	}
}

// toggleMute detaches or reattaches the microphone from each of the
// call's active audio slots. The wiring memo is left untouched: mute is
// a command-driven override, not part of media activation.
func (e *Engine) toggleMute(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.call == nil {
		return
	}
	for _, slot := range e.call.mediaSlots {
		var err error
		if muted {
			err = e.stack.Disconnect(sipstack.SoundDeviceSlot, slot)
		} else {
			err = e.stack.Connect(sipstack.SoundDeviceSlot, slot)
		}
		if err != nil {
			coreLog.Warnf("mute toggle on slot %d failed: %v", slot, err)
		}
	}
}

func (e *Engine) toggleHold(held bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.call == nil {
		return
	}
	var err error
	if held {
		err = e.stack.Hold(e.call.id)
	} else {
		err = e.stack.Resume(e.call.id)
	}
	if err != nil {
		coreLog.Warnf("hold toggle failed: %v", err)
	}
}

func (e *Engine) dtmf(digits string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.call == nil || digits == "" {
		return
	}
	if err := e.stack.DialDTMF(e.call.id, digits); err != nil {
		coreLog.Warnf("dtmf failed: %v", err)
	}
}

func (e *Engine) transfer(number string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.call == nil || number == "" {
		return
	}
	if err := e.stack.Transfer(e.call.id, "sip:"+number); err != nil {
		coreLog.Warnf("transfer failed: %v", err)
	}
}

// enableCapture flips the process-wide capture flag and always reports
// the new value, even when it did not change.
func (e *Engine) enableCapture(enabled bool) {
	e.capture.SetTo(enabled)
	e.emitter.CaptureState(enabled)
}

// OnRegState reports registration progress. The state is surfaced to the
// operator but never gates controller behavior; retry and backoff stay
// inside the stack.
func (e *Engine) OnRegState(acc sipstack.AccountID, code int, reason string) {
	e.emitter.RegState(code, reason)
}

// OnIncomingCall adopts the call when none is tracked and answers with a
// provisional ringing status either way. A second call while one is
// tracked never becomes tracked and produces no events.
func (e *Engine) OnIncomingCall(id sipstack.CallID, remote string) {
	remote = truncate(remote, maxRemoteInfo)

	e.mu.Lock()
	adopted := e.call == nil
	if adopted {
		call := newTrackedCall(id, remote, stateNone)
		_ = call.lifecycle.Event(context.Background(), eventRing)
		e.call = call
		callsTracked.Inc()
	}
	e.mu.Unlock()

	if adopted {
		e.emitter.IncomingCall(id, remote)
	} else {
		coreLog.Warnf("already tracking a call, ringing untracked call %d", id)
	}
	if err := e.stack.Answer(id, 180); err != nil {
		coreLog.Warnf("ringing response for call %d failed: %v", id, err)
	}
}

// OnCallState maps the stack state onto the lifecycle and reports it.
// The lifecycle machine owns the reported state for the tracked call:
// a stale callback that would move the call backwards is refused and
// the state already reached is reported again. A terminal disconnect
// releases the tracked identity, so later call commands fall through
// as no-ops.
func (e *Engine) OnCallState(id sipstack.CallID, state sipstack.CallState, remote string) {
	remote = truncate(remote, maxRemoteInfo)

	label := state.String()
	e.mu.Lock()
	if e.call != nil && e.call.id == id {
		e.call.remote = remote
		e.advanceLocked(state)
		label = e.call.lifecycle.Current()
		if state == sipstack.CallStateDisconnected {
			e.call = nil
		}
	}
	e.mu.Unlock()

	e.emitter.CallState(id, label, remote)
}

// advanceLocked drives the lifecycle machine; invalid transitions from
// out-of-order callbacks are ignored.
func (e *Engine) advanceLocked(state sipstack.CallState) {
	var event string
	switch state {
	case sipstack.CallStateIncoming:
		event = eventRing
	case sipstack.CallStateCalling:
		event = eventDial
	case sipstack.CallStateEarly:
		event = eventProgress
	case sipstack.CallStateConnecting:
		event = eventConnect
	case sipstack.CallStateConfirmed:
		event = eventConfirm
	case sipstack.CallStateDisconnected:
		event = eventDisconnect
	default:
		return
	}
	if err := e.call.lifecycle.Event(context.Background(), event); err != nil {
		coreLog.Debugf("lifecycle %s in state %s: %v", event, e.call.lifecycle.Current(), err)
	}
}

// OnCallMedia wires the bridge when the tracked call's audio becomes
// active: call to speaker, microphone to call, and the two tap
// connections when the tap slots exist. The per-call memo keeps the
// wiring idempotent across repeated media callbacks.
func (e *Engine) OnCallMedia(id sipstack.CallID, audioSlots []sipstack.Slot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.call == nil || e.call.id != id {
		return
	}
	e.call.mediaSlots = audioSlots

	for _, slot := range audioSlots {
		e.connectOnceLocked(slot, sipstack.SoundDeviceSlot)
		e.connectOnceLocked(sipstack.SoundDeviceSlot, slot)
		if e.remoteTap != sipstack.InvalidSlot {
			e.connectOnceLocked(slot, e.remoteTap)
		}
		if e.localTap != sipstack.InvalidSlot {
			e.connectOnceLocked(sipstack.SoundDeviceSlot, e.localTap)
		}
	}
}

func (e *Engine) connectOnceLocked(src, dst sipstack.Slot) {
	pair := slotPair{src: src, dst: dst}
	if e.call.wired[pair] {
		return
	}
	if err := e.stack.Connect(src, dst); err != nil {
		coreLog.Warnf("bridge connect %d->%d failed: %v", src, dst, err)
		return
	}
	e.call.wired[pair] = true
}

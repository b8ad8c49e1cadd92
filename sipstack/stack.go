// Package sipstack is the narrow surface this process needs from the
// underlying SIP/media stack: account registration, call control and
// conference-bridge routing. The real implementation binds pjsua through
// cgo when built with the pjsua tag; without it a silent stub is used so
// the module builds and tests run everywhere.
package sipstack

// AccountID identifies a registered account inside the stack.
type AccountID int

// CallID identifies a call inside the stack.
type CallID int

// Slot is a conference-bridge endpoint identifier.
type Slot int

const (
	InvalidAccount AccountID = -1
	InvalidCall    CallID    = -1
	InvalidSlot    Slot      = -1

	// SoundDeviceSlot is the bridge slot of the sound device
	// (speaker out, microphone in).
	SoundDeviceSlot Slot = 0
)

// CallState mirrors the stack's invite session states.
type CallState int

const (
	CallStateUnknown CallState = iota
	CallStateCalling
	CallStateIncoming
	CallStateEarly
	CallStateConnecting
	CallStateConfirmed
	CallStateDisconnected
)

func (s CallState) String() string {
	switch s {
	case CallStateCalling:
		return "calling"
	case CallStateIncoming:
		return "incoming"
	case CallStateEarly:
		return "early"
	case CallStateConnecting:
		return "connecting"
	case CallStateConfirmed:
		return "confirmed"
	case CallStateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// FrameType marks the payload kind of a bridge frame.
type FrameType int

const (
	FrameNone FrameType = iota
	FrameAudio
)

// Frame is one media frame pushed by or pulled from the bridge. Data is
// only valid for the duration of the call that delivered it.
type Frame struct {
	Type FrameType
	Data []byte
}

// MediaPort is a virtual bridge endpoint. PutFrame runs on the stack's
// media thread and must return without blocking.
type MediaPort interface {
	PutFrame(Frame)
	GetFrame() Frame
}

// PortFormat describes the PCM format of a media port.
type PortFormat struct {
	ClockRate       int
	Channels        int
	BitsPerSample   int
	SamplesPerFrame int
}

// AccountConfig carries everything needed to register one account.
type AccountConfig struct {
	IDURI        string
	RegistrarURI string
	Username     string
	Password     string
	Realm        string
	Scheme       string
	Transport    string // "tcp" selects the TCP transport, anything else the default
}

// EventSink receives stack callbacks. Calls arrive on the stack's own
// worker threads, concurrently with whatever thread drives the Stack.
type EventSink interface {
	OnRegState(acc AccountID, code int, reason string)
	OnIncomingCall(call CallID, remote string)
	OnCallState(call CallID, state CallState, remote string)
	OnCallMedia(call CallID, audioSlots []Slot)
}

// Stack is the capability surface over the external SIP/media stack.
type Stack interface {
	Start(sink EventSink) error
	Close() error

	AddAccount(cfg AccountConfig) (AccountID, error)
	RemoveAccount(acc AccountID) error
	AccountURI(acc AccountID) (string, error)

	Call(acc AccountID, uri string) (CallID, error)
	Answer(call CallID, code int) error
	Hangup(call CallID, code int) error
	Hold(call CallID) error
	Resume(call CallID) error
	Transfer(call CallID, uri string) error
	DialDTMF(call CallID, digits string) error

	AddPort(port MediaPort, format PortFormat) (Slot, error)
	Connect(src, dst Slot) error
	Disconnect(src, dst Slot) error
}

// Config holds process-level stack options.
type Config struct {
	UserAgent     string
	MaxCalls      int
	PublicAddress string
	LogLevel      int
	// LogFunc receives the stack's own log output. Level follows the
	// stack's convention: lower is more severe.
	LogFunc func(level int, msg string)
}

// New creates the stack implementation selected at build time.
func New(cfg Config) Stack {
	return newStack(cfg)
}

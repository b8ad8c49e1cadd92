//go:build !pjsua

package sipstack

import "sync"

// stack is a stub implementation used when the pjsua build tag is
// disabled. Operations succeed and hand out sequential identifiers but
// no signaling or media ever happens.
type stack struct {
	mu       sync.Mutex
	sink     EventSink
	accounts map[AccountID]string
	nextAcc  AccountID
	nextCall CallID
	nextSlot Slot
}

func newStack(cfg Config) Stack {
	return &stack{
		accounts: make(map[AccountID]string),
		nextSlot: SoundDeviceSlot + 1,
	}
}

func (s *stack) Start(sink EventSink) error {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
	return nil
}

func (s *stack) Close() error { return nil }

func (s *stack) AddAccount(cfg AccountConfig) (AccountID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextAcc
	s.nextAcc++
	s.accounts[id] = cfg.IDURI
	return id, nil
}

func (s *stack) RemoveAccount(acc AccountID) error {
	s.mu.Lock()
	delete(s.accounts, acc)
	s.mu.Unlock()
	return nil
}

func (s *stack) AccountURI(acc AccountID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[acc], nil
}

func (s *stack) Call(acc AccountID, uri string) (CallID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextCall
	s.nextCall++
	return id, nil
}

func (s *stack) Answer(call CallID, code int) error        { return nil }
func (s *stack) Hangup(call CallID, code int) error        { return nil }
func (s *stack) Hold(call CallID) error                    { return nil }
func (s *stack) Resume(call CallID) error                  { return nil }
func (s *stack) Transfer(call CallID, uri string) error    { return nil }
func (s *stack) DialDTMF(call CallID, digits string) error { return nil }

func (s *stack) AddPort(port MediaPort, format PortFormat) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.nextSlot
	s.nextSlot++
	return slot, nil
}

func (s *stack) Connect(src, dst Slot) error    { return nil }
func (s *stack) Disconnect(src, dst Slot) error { return nil }

//go:build pjsua

package sipstack

/*
#cgo pkg-config: libpjproject
#include <stdlib.h>
#include <string.h>
#include <pjsua-lib/pjsua.h>

extern void goOnRegState(int acc_id, int code);
extern void goOnIncomingCall(int call_id, char *remote, int remote_len);
extern void goOnCallState(int call_id, int state, char *remote, int remote_len);
extern void goOnCallMedia(int call_id, int *slots, int count);
extern void goPutFrame(long long handle, char *buf, int size, int type);
extern void goStackLog(int level, char *data, int len);

static void shim_on_reg_state2(pjsua_acc_id acc_id, pjsua_reg_info *info) {
	int code = info->cbparam ? (int)info->cbparam->code : 0;
	goOnRegState((int)acc_id, code);
}

static void shim_on_incoming_call(pjsua_acc_id acc_id, pjsua_call_id call_id, pjsip_rx_data *rdata) {
	pjsua_call_info ci;
	pjsua_call_get_info(call_id, &ci);
	goOnIncomingCall((int)call_id, ci.remote_info.ptr, (int)ci.remote_info.slen);
}

static void shim_on_call_state(pjsua_call_id call_id, pjsip_event *e) {
	pjsua_call_info ci;
	pjsua_call_get_info(call_id, &ci);
	goOnCallState((int)call_id, (int)ci.state, ci.remote_info.ptr, (int)ci.remote_info.slen);
}

static void shim_on_call_media_state(pjsua_call_id call_id) {
	pjsua_call_info ci;
	int slots[PJSUA_MAX_CALL_MEDIA];
	int count = 0;
	unsigned i;
	pjsua_call_get_info(call_id, &ci);
	for (i = 0; i < ci.media_cnt; i++) {
		if (ci.media[i].type == PJMEDIA_TYPE_AUDIO && ci.media[i].status == PJSUA_CALL_MEDIA_ACTIVE) {
			slots[count++] = (int)ci.media[i].stream.aud.conf_slot;
		}
	}
	goOnCallMedia((int)call_id, slots, count);
}

static void shim_log(int level, const char *data, int len) {
	goStackLog(level, (char*)data, len);
}

typedef struct shim_port {
	pjmedia_port base;
	long long handle;
} shim_port;

static pj_status_t shim_put_frame(pjmedia_port *port, pjmedia_frame *frame) {
	shim_port *sp = (shim_port*)port;
	goPutFrame(sp->handle, (char*)frame->buf, (int)frame->size, (int)frame->type);
	return PJ_SUCCESS;
}

static pj_status_t shim_get_frame(pjmedia_port *port, pjmedia_frame *frame) {
	frame->type = PJMEDIA_FRAME_TYPE_NONE;
	frame->size = 0;
	return PJ_SUCCESS;
}

static int shim_init(const char *user_agent, unsigned max_calls, int log_level, const char *public_addr) {
	pjsua_config ua_cfg;
	pjsua_logging_config log_cfg;
	pjsua_media_config media_cfg;
	pjsua_transport_config tp_cfg;

	if (pjsua_create() != PJ_SUCCESS) return -1;

	pjsua_config_default(&ua_cfg);
	ua_cfg.cb.on_reg_state2 = &shim_on_reg_state2;
	ua_cfg.cb.on_incoming_call = &shim_on_incoming_call;
	ua_cfg.cb.on_call_state = &shim_on_call_state;
	ua_cfg.cb.on_call_media_state = &shim_on_call_media_state;
	ua_cfg.max_calls = max_calls;
	ua_cfg.user_agent = pj_str((char*)user_agent);

	pjsua_logging_config_default(&log_cfg);
	log_cfg.console_level = 0;
	log_cfg.level = log_level;
	log_cfg.cb = &shim_log;

	pjsua_media_config_default(&media_cfg);

	if (pjsua_init(&ua_cfg, &log_cfg, &media_cfg) != PJ_SUCCESS) return -1;

	pjsua_transport_config_default(&tp_cfg);
	if (public_addr && public_addr[0]) {
		tp_cfg.public_addr = pj_str((char*)public_addr);
	}
	if (pjsua_transport_create(PJSIP_TRANSPORT_UDP, &tp_cfg, NULL) != PJ_SUCCESS) return -1;
	pjsua_transport_create(PJSIP_TRANSPORT_TCP, &tp_cfg, NULL);

	if (pjsua_start() != PJ_SUCCESS) return -1;
	return 0;
}

static int shim_add_account(const char *id_uri, const char *reg_uri, const char *user,
		const char *passwd, const char *realm, const char *scheme, int use_tcp) {
	pjsua_acc_config cfg;
	pjsua_acc_id acc_id;
	pjsua_acc_config_default(&cfg);
	cfg.id = pj_str((char*)id_uri);
	cfg.reg_uri = pj_str((char*)reg_uri);
	cfg.cred_count = 1;
	cfg.cred_info[0].realm = pj_str((char*)realm);
	cfg.cred_info[0].scheme = pj_str((char*)scheme);
	cfg.cred_info[0].username = pj_str((char*)user);
	cfg.cred_info[0].data_type = PJSIP_CRED_DATA_PLAIN_PASSWD;
	cfg.cred_info[0].data = pj_str((char*)passwd);
	if (use_tcp) cfg.transport_id = 1;
	if (pjsua_acc_add(&cfg, PJ_TRUE, &acc_id) != PJ_SUCCESS) return -1;
	return (int)acc_id;
}

static int shim_acc_uri(int acc_id, char *buf, int bufsz) {
	pjsua_acc_info ai;
	int n;
	if (pjsua_acc_get_info((pjsua_acc_id)acc_id, &ai) != PJ_SUCCESS) return -1;
	n = (int)ai.acc_uri.slen;
	if (n >= bufsz) n = bufsz - 1;
	memcpy(buf, ai.acc_uri.ptr, n);
	buf[n] = 0;
	return n;
}

static int shim_make_call(int acc_id, const char *uri) {
	pj_str_t dst = pj_str((char*)uri);
	pjsua_call_id id;
	if (pjsua_call_make_call((pjsua_acc_id)acc_id, &dst, 0, NULL, NULL, &id) != PJ_SUCCESS) return -1;
	return (int)id;
}

static int shim_dtmf(int call_id, const char *digits) {
	pj_str_t d = pj_str((char*)digits);
	return pjsua_call_dial_dtmf((pjsua_call_id)call_id, &d) == PJ_SUCCESS ? 0 : -1;
}

static int shim_xfer(int call_id, const char *uri) {
	pj_str_t d = pj_str((char*)uri);
	return pjsua_call_xfer((pjsua_call_id)call_id, &d, NULL) == PJ_SUCCESS ? 0 : -1;
}

static int shim_add_port(long long handle, unsigned clock_rate, unsigned channels,
		unsigned bits, unsigned samples, const char *name) {
	pj_pool_t *pool = pjsua_pool_create("capture", 8000, 4000);
	pj_str_t pname = pj_str((char*)name);
	pjsua_conf_port_id slot;
	shim_port *sp = (shim_port*)pj_pool_zalloc(pool, sizeof(shim_port));
	pjmedia_port_info_init(&sp->base.info, &pname, 0x4A533250, clock_rate, channels, bits, samples);
	sp->base.put_frame = &shim_put_frame;
	sp->base.get_frame = &shim_get_frame;
	sp->handle = handle;
	if (pjsua_conf_add_port(pool, &sp->base, &slot) != PJ_SUCCESS) return -1;
	return (int)slot;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// stack binds pjsua. pjsua itself is process-global, so only one
// instance is active at a time; the exported callbacks below dispatch
// through it.
type stack struct {
	cfg Config

	mu    sync.Mutex
	sink  EventSink
	ports map[int64]MediaPort
	next  int64
}

var (
	activeMu sync.Mutex
	active   *stack
)

func newStack(cfg Config) Stack {
	return &stack{cfg: cfg, ports: make(map[int64]MediaPort)}
}

func (s *stack) Start(sink EventSink) error {
	activeMu.Lock()
	if active != nil {
		activeMu.Unlock()
		return fmt.Errorf("stack already started")
	}
	active = s
	activeMu.Unlock()

	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()

	ua := C.CString(s.cfg.UserAgent)
	defer C.free(unsafe.Pointer(ua))
	pub := C.CString(s.cfg.PublicAddress)
	defer C.free(unsafe.Pointer(pub))

	if C.shim_init(ua, C.uint(s.cfg.MaxCalls), C.int(s.cfg.LogLevel), pub) != 0 {
		activeMu.Lock()
		active = nil
		activeMu.Unlock()
		return fmt.Errorf("pjsua init failed")
	}
	return nil
}

func (s *stack) Close() error {
	C.pjsua_destroy()
	activeMu.Lock()
	active = nil
	activeMu.Unlock()
	return nil
}

func (s *stack) AddAccount(cfg AccountConfig) (AccountID, error) {
	id := C.CString(cfg.IDURI)
	reg := C.CString(cfg.RegistrarURI)
	user := C.CString(cfg.Username)
	passwd := C.CString(cfg.Password)
	realm := C.CString(cfg.Realm)
	scheme := C.CString(cfg.Scheme)
	defer func() {
		for _, p := range []*C.char{id, reg, user, passwd, realm, scheme} {
			C.free(unsafe.Pointer(p))
		}
	}()

	useTCP := C.int(0)
	if cfg.Transport == "tcp" {
		useTCP = 1
	}
	acc := C.shim_add_account(id, reg, user, passwd, realm, scheme, useTCP)
	if acc < 0 {
		return InvalidAccount, fmt.Errorf("account add failed")
	}
	return AccountID(acc), nil
}

func (s *stack) RemoveAccount(acc AccountID) error {
	if C.pjsua_acc_del(C.pjsua_acc_id(acc)) != C.PJ_SUCCESS {
		return fmt.Errorf("account %d delete failed", acc)
	}
	return nil
}

func (s *stack) AccountURI(acc AccountID) (string, error) {
	buf := make([]byte, 512)
	n := C.shim_acc_uri(C.int(acc), (*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf)))
	if n < 0 {
		return "", fmt.Errorf("account %d info failed", acc)
	}
	return string(buf[:n]), nil
}

func (s *stack) Call(acc AccountID, uri string) (CallID, error) {
	dst := C.CString(uri)
	defer C.free(unsafe.Pointer(dst))
	id := C.shim_make_call(C.int(acc), dst)
	if id < 0 {
		return InvalidCall, fmt.Errorf("call to %s failed", uri)
	}
	return CallID(id), nil
}

func (s *stack) Answer(call CallID, code int) error {
	if C.pjsua_call_answer(C.pjsua_call_id(call), C.uint(code), nil, nil) != C.PJ_SUCCESS {
		return fmt.Errorf("answer %d failed", call)
	}
	return nil
}

func (s *stack) Hangup(call CallID, code int) error {
	if C.pjsua_call_hangup(C.pjsua_call_id(call), C.uint(code), nil, nil) != C.PJ_SUCCESS {
		return fmt.Errorf("hangup %d failed", call)
	}
	return nil
}

func (s *stack) Hold(call CallID) error {
	if C.pjsua_call_set_hold(C.pjsua_call_id(call), nil) != C.PJ_SUCCESS {
		return fmt.Errorf("hold %d failed", call)
	}
	return nil
}

func (s *stack) Resume(call CallID) error {
	if C.pjsua_call_reinvite(C.pjsua_call_id(call), C.uint(C.PJSUA_CALL_UNHOLD), nil) != C.PJ_SUCCESS {
		return fmt.Errorf("resume %d failed", call)
	}
	return nil
}

func (s *stack) Transfer(call CallID, uri string) error {
	dst := C.CString(uri)
	defer C.free(unsafe.Pointer(dst))
	if C.shim_xfer(C.int(call), dst) != 0 {
		return fmt.Errorf("transfer %d failed", call)
	}
	return nil
}

func (s *stack) DialDTMF(call CallID, digits string) error {
	d := C.CString(digits)
	defer C.free(unsafe.Pointer(d))
	if C.shim_dtmf(C.int(call), d) != 0 {
		return fmt.Errorf("dtmf on %d failed", call)
	}
	return nil
}

func (s *stack) AddPort(port MediaPort, format PortFormat) (Slot, error) {
	s.mu.Lock()
	s.next++
	handle := s.next
	s.ports[handle] = port
	s.mu.Unlock()

	name := C.CString(fmt.Sprintf("capture%d", handle))
	defer C.free(unsafe.Pointer(name))

	slot := C.shim_add_port(C.longlong(handle), C.uint(format.ClockRate), C.uint(format.Channels),
		C.uint(format.BitsPerSample), C.uint(format.SamplesPerFrame), name)
	if slot < 0 {
		s.mu.Lock()
		delete(s.ports, handle)
		s.mu.Unlock()
		return InvalidSlot, fmt.Errorf("conf add port failed")
	}
	return Slot(slot), nil
}

func (s *stack) Connect(src, dst Slot) error {
	if C.pjsua_conf_connect(C.pjsua_conf_port_id(src), C.pjsua_conf_port_id(dst)) != C.PJ_SUCCESS {
		return fmt.Errorf("conf connect %d->%d failed", src, dst)
	}
	return nil
}

func (s *stack) Disconnect(src, dst Slot) error {
	if C.pjsua_conf_disconnect(C.pjsua_conf_port_id(src), C.pjsua_conf_port_id(dst)) != C.PJ_SUCCESS {
		return fmt.Errorf("conf disconnect %d->%d failed", src, dst)
	}
	return nil
}

func (s *stack) sinkRef() EventSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

func currentStack() *stack {
	activeMu.Lock()
	defer activeMu.Unlock()
	return active
}

//export goOnRegState
func goOnRegState(accID C.int, code C.int) {
	if s := currentStack(); s != nil {
		if sink := s.sinkRef(); sink != nil {
			sink.OnRegState(AccountID(accID), int(code), "")
		}
	}
}

//export goOnIncomingCall
func goOnIncomingCall(callID C.int, remote *C.char, remoteLen C.int) {
	if s := currentStack(); s != nil {
		if sink := s.sinkRef(); sink != nil {
			sink.OnIncomingCall(CallID(callID), C.GoStringN(remote, remoteLen))
		}
	}
}

//export goOnCallState
func goOnCallState(callID C.int, state C.int, remote *C.char, remoteLen C.int) {
	s := currentStack()
	if s == nil {
		return
	}
	sink := s.sinkRef()
	if sink == nil {
		return
	}
	sink.OnCallState(CallID(callID), mapInvState(int(state)), C.GoStringN(remote, remoteLen))
}

// mapInvState translates PJSIP_INV_STATE_* values.
func mapInvState(v int) CallState {
	switch v {
	case C.PJSIP_INV_STATE_CALLING:
		return CallStateCalling
	case C.PJSIP_INV_STATE_INCOMING:
		return CallStateIncoming
	case C.PJSIP_INV_STATE_EARLY:
		return CallStateEarly
	case C.PJSIP_INV_STATE_CONNECTING:
		return CallStateConnecting
	case C.PJSIP_INV_STATE_CONFIRMED:
		return CallStateConfirmed
	case C.PJSIP_INV_STATE_DISCONNECTED:
		return CallStateDisconnected
	default:
		return CallStateUnknown
	}
}

//export goOnCallMedia
func goOnCallMedia(callID C.int, slots *C.int, count C.int) {
	s := currentStack()
	if s == nil {
		return
	}
	sink := s.sinkRef()
	if sink == nil {
		return
	}
	out := make([]Slot, int(count))
	if count > 0 {
		view := unsafe.Slice((*C.int)(slots), int(count))
		for i, v := range view {
			out[i] = Slot(v)
		}
	}
	sink.OnCallMedia(CallID(callID), out)
}

//export goPutFrame
func goPutFrame(handle C.longlong, buf *C.char, size C.int, typ C.int) {
	s := currentStack()
	if s == nil {
		return
	}
	s.mu.Lock()
	port := s.ports[int64(handle)]
	s.mu.Unlock()
	if port == nil {
		return
	}
	frame := Frame{Type: FrameNone}
	if typ == C.PJMEDIA_FRAME_TYPE_AUDIO {
		frame.Type = FrameAudio
	}
	if size > 0 {
		frame.Data = unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(size))
	}
	port.PutFrame(frame)
}

//export goStackLog
func goStackLog(level C.int, data *C.char, length C.int) {
	if s := currentStack(); s != nil && s.cfg.LogFunc != nil {
		s.cfg.LogFunc(int(level), C.GoStringN(data, length))
	}
}

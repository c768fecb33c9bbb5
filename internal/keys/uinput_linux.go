//go:build linux

package keys

import (
	"fmt"
	"log"
	"sync"

	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"
)

const uinputPath = "/dev/uinput"

// uinput_user_dev layout: name[80], input_id (4×u16), ff_effects_max u32,
// absmax/absmin/absfuzz/absflat [64]s32.
const (
	uinputNameSize = 80
	uinputDevSize  = uinputNameSize + 8 + 4 + 4*64*4
	busVirtual     = 0x06
)

// UinputSink injects key events through a virtual keyboard.
type UinputSink struct {
	mu  sync.Mutex
	fd  int
	buf []byte
}

// NewUinputSink creates a virtual keyboard able to send every key in All().
func NewUinputSink(name string) (*UinputSink, error) {
	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}

	fail := func(step string, err error) (*UinputSink, error) {
		unix.Close(fd)
		return nil, fmt.Errorf("uinput %s: %w", step, err)
	}

	if err := unix.IoctlSetInt(fd, uiSetEvBit, int(evdev.EV_KEY)); err != nil {
		return fail("set EV_KEY", err)
	}
	if err := unix.IoctlSetInt(fd, uiSetEvBit, int(evdev.EV_SYN)); err != nil {
		return fail("set EV_SYN", err)
	}
	for _, k := range All() {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(k.Code())); err != nil {
			return fail(fmt.Sprintf("set key bit %s", k), err)
		}
	}

	dev := make([]byte, uinputDevSize)
	copy(dev[:uinputNameSize-1], name)
	dev[uinputNameSize] = busVirtual // bustype, little-endian u16
	dev[uinputNameSize+2] = 0x01     // vendor
	dev[uinputNameSize+4] = 0x01     // product
	dev[uinputNameSize+6] = 0x01     // version
	if _, err := unix.Write(fd, dev); err != nil {
		return fail("write device", err)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fail("create device", err)
	}

	log.Printf("keys: uinput virtual keyboard %q created", name)
	return &UinputSink{fd: fd, buf: make([]byte, 2*eventSize)}, nil
}

func (s *UinputSink) Press(k Key) error   { return s.emit(k, 1) }
func (s *UinputSink) Release(k Key) error { return s.emit(k, 0) }

func (s *UinputSink) emit(k Key, value int32) error {
	code := k.Code()
	if code == 0 {
		return fmt.Errorf("keys: no event code for %s", k)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	encodeEvent(s.buf, evdev.InputEvent{Type: uint16(evdev.EV_KEY), Code: code, Value: value})
	encodeEvent(s.buf[eventSize:], evdev.InputEvent{Type: uint16(evdev.EV_SYN), Code: uint16(evdev.SYN_REPORT)})
	if _, err := unix.Write(s.fd, s.buf); err != nil {
		return fmt.Errorf("keys: write %s: %w", k, err)
	}
	return nil
}

// Close destroys the virtual keyboard.
func (s *UinputSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = unix.IoctlSetInt(s.fd, uiDevDestroy, 0)
	return unix.Close(s.fd)
}

//go:build linux

package keys

// Linux input plumbing shared by the uinput sink and the evdev modifier:
// - key codes
// - ioctl request encoding (_IOC)
// - input_event encoding (timeval is 16B on 64-bit, 8B on 32-bit)

import (
	"encoding/binary"
	"unsafe"

	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"
)

// Code returns the Linux input event code for the key.
func (k Key) Code() uint16 {
	switch {
	case k == KeyTab:
		return uint16(evdev.KEY_TAB)
	case k == KeyEsc:
		return uint16(evdev.KEY_ESC)
	case k >= Key1 && k <= Key8:
		// KEY_1..KEY_8 are consecutive
		return uint16(evdev.KEY_1) + uint16(k-Key1)
	default:
		return 0
	}
}

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
)

func ioc(dir, typ, nr, size uint32) uint {
	return uint((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift))
}

var (
	uiDevCreate  = ioc(iocNone, 'U', 1, 0)
	uiDevDestroy = ioc(iocNone, 'U', 2, 0)
	uiSetEvBit   = ioc(iocWrite, 'U', 100, 4)
	uiSetKeyBit  = ioc(iocWrite, 'U', 101, 4)
)

var timevalSize = int(unsafe.Sizeof(unix.Timeval{}))

// eventSize is sizeof(struct input_event) on this platform.
var eventSize = int(unsafe.Sizeof(evdev.InputEvent{}))

// encodeEvent writes an input_event with a zero timestamp; the kernel
// stamps uinput events itself.
func encodeEvent(buf []byte, ev evdev.InputEvent) {
	for i := 0; i < timevalSize; i++ {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint16(buf[timevalSize:], ev.Type)
	binary.LittleEndian.PutUint16(buf[timevalSize+2:], ev.Code)
	binary.LittleEndian.PutUint32(buf[timevalSize+4:], uint32(ev.Value))
}

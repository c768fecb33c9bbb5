//go:build linux

package keys

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	evdev "github.com/gvalkov/golang-evdev"
)

// EvdevModifier watches a keyboard event device and reports whether the
// drag key (X) is held. The reader goroutine is the only writer of the state.
type EvdevModifier struct {
	dev  *evdev.InputDevice
	code uint16
	held atomic.Bool
	done chan struct{}
}

// NewEvdevModifier opens path (e.g. /dev/input/event3) and tracks the X key.
func NewEvdevModifier(path string) (*EvdevModifier, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input device: %w", err)
	}
	m := &EvdevModifier{dev: dev, code: uint16(evdev.KEY_X), done: make(chan struct{})}
	go m.readLoop()
	log.Printf("keys: watching %s (%s) for the drag key", path, dev.Name)
	return m, nil
}

func (m *EvdevModifier) readLoop() {
	defer close(m.done)

	for {
		events, err := m.dev.Read()
		if err != nil {
			if !errors.Is(err, os.ErrClosed) {
				log.Printf("keys: modifier read error: %v", err)
			}
			m.held.Store(false)
			return
		}
		m.apply(events)
	}
}

// apply folds a batch of events into the held state.
func (m *EvdevModifier) apply(events []evdev.InputEvent) {
	for _, ev := range events {
		if ev.Type != uint16(evdev.EV_KEY) || ev.Code != m.code {
			continue
		}
		// 1 = press, 2 = autorepeat, 0 = release
		m.held.Store(ev.Value != 0)
	}
}

func (m *EvdevModifier) Held() bool { return m.held.Load() }

// Close stops the reader.
func (m *EvdevModifier) Close() error {
	err := m.dev.File.Close()
	<-m.done
	return err
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package keys

import (
	"fmt"
	"log"
)

// Key identifies a keyboard key the bridge can send to the game.
type Key uint8

const (
	KeyTab Key = iota
	KeyEsc
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
)

// Hotkey returns the digit key for hotkey n (1..8).
func Hotkey(n int) (Key, error) {
	if n < 1 || n > 8 {
		return 0, fmt.Errorf("hotkey %d out of range 1-8", n)
	}
	return Key1 + Key(n-1), nil
}

func (k Key) String() string {
	switch {
	case k == KeyTab:
		return "Tab"
	case k == KeyEsc:
		return "Esc"
	case k >= Key1 && k <= Key8:
		return fmt.Sprintf("%d", int(k-Key1)+1)
	default:
		return fmt.Sprintf("Key(%d)", uint8(k))
	}
}

// All lists every key the bridge may send.
func All() []Key {
	return []Key{KeyTab, KeyEsc, Key1, Key2, Key3, Key4, Key5, Key6, Key7, Key8}
}

// Sink delivers key presses to the game. Implementations must tolerate
// rapid press/release pairs and overlapping holds of different keys.
type Sink interface {
	Press(k Key) error
	Release(k Key) error
}

// Modifier reports whether the offset-drag modifier is currently held.
type Modifier interface {
	Held() bool
}

// NoModifier is never held.
type NoModifier struct{}

func (NoModifier) Held() bool { return false }

// LogSink only logs key events. Used when no virtual keyboard is available.
type LogSink struct{}

func (LogSink) Press(k Key) error {
	log.Printf("keys: %s DOWN", k)
	return nil
}

func (LogSink) Release(k Key) error {
	log.Printf("keys: %s UP", k)
	return nil
}

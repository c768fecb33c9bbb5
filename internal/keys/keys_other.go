//go:build !linux

package keys

import "errors"

var errUnsupported = errors.New("keys: virtual input devices are only supported on linux")

// Code has no meaning without Linux input devices.
func (Key) Code() uint16 { return 0 }

// UinputSink is unavailable on this platform.
type UinputSink struct{}

func NewUinputSink(string) (*UinputSink, error) { return nil, errUnsupported }

func (*UinputSink) Press(Key) error   { return errUnsupported }
func (*UinputSink) Release(Key) error { return errUnsupported }
func (*UinputSink) Close() error      { return nil }

// EvdevModifier is unavailable on this platform.
type EvdevModifier struct{}

func NewEvdevModifier(string) (*EvdevModifier, error) { return nil, errUnsupported }

func (*EvdevModifier) Held() bool   { return false }
func (*EvdevModifier) Close() error { return nil }

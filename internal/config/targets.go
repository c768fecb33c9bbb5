// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"

	"github.com/relabs-tech/pose_bridge/internal/gesture"
)

// Default target poses. Rotations are (yaw, pitch, roll) in the
// roll-corrected frame of the secondary device.
var (
	DefaultPipboyTarget = gesture.Target{
		Position: [3]float64{-0.18, 0.17, -0.2},
		Rotation: [3]float64{200.51, -5.9, -60.27},
	}
	DefaultMenuTarget = gesture.Target{
		Position: [3]float64{-0.10, 0.40, 0.10},
		Rotation: [3]float64{0, 45, 0},
	}
	// DefaultHotkeyTarget sits below the floor so an unset hotkey never matches.
	DefaultHotkeyTarget = gesture.Target{
		Position: [3]float64{0, -1, 0},
		Rotation: [3]float64{0, 45, 0},
	}
)

const holsterCutoffKey = "holster_cutoff"

// DefaultTarget returns the compiled-in target for a slot.
func DefaultTarget(s gesture.Slot) gesture.Target {
	switch s {
	case gesture.SlotPipboy:
		return DefaultPipboyTarget
	case gesture.SlotMenu:
		return DefaultMenuTarget
	default:
		return DefaultHotkeyTarget
	}
}

// DefaultTargets returns every slot at its default.
func DefaultTargets() [gesture.NumSlots]gesture.Target {
	var ts [gesture.NumSlots]gesture.Target
	for s := gesture.Slot(0); s < gesture.NumSlots; s++ {
		ts[s] = DefaultTarget(s)
	}
	return ts
}

// TargetStore persists the gesture targets and the holster cutoff as a
// JSON object of "<slot>_pos" / "<slot>_rot" triples. Every mutation is
// saved immediately.
type TargetStore struct {
	mu            sync.Mutex
	path          string
	targets       [gesture.NumSlots]gesture.Target
	holsterCutoff float64
}

// OpenTargetStore loads path. A missing file is created with the
// defaults; a corrupt file or field is logged and replaced by its
// default in memory without touching the file.
func OpenTargetStore(path string, holsterDefault float64) (*TargetStore, error) {
	s := &TargetStore{
		path:          path,
		targets:       DefaultTargets(),
		holsterCutoff: holsterDefault,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: targets file %s not found, creating defaults", path)
		if err := s.Save(); err != nil {
			return s, err
		}
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read targets file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("config: targets file %s corrupted, using defaults: %v", path, err)
		return s, nil
	}

	if v, ok := raw[holsterCutoffKey]; ok {
		var cutoff float64
		if err := json.Unmarshal(v, &cutoff); err != nil {
			log.Printf("config: %s: %v, keeping default", holsterCutoffKey, err)
		} else {
			s.holsterCutoff = cutoff
		}
	}

	for slot := gesture.Slot(0); slot < gesture.NumSlots; slot++ {
		decodeTriple(raw, slot.Name()+"_pos", &s.targets[slot].Position)
		decodeTriple(raw, slot.Name()+"_rot", &s.targets[slot].Rotation)
	}
	return s, nil
}

func decodeTriple(raw map[string]json.RawMessage, key string, dst *[3]float64) {
	v, ok := raw[key]
	if !ok {
		return
	}
	var vals []float64
	if err := json.Unmarshal(v, &vals); err != nil {
		log.Printf("config: %s: %v, keeping default", key, err)
		return
	}
	if len(vals) != 3 {
		log.Printf("config: %s: want 3 values, got %d, keeping default", key, len(vals))
		return
	}
	copy(dst[:], vals)
}

// Path is the file backing the store.
func (s *TargetStore) Path() string { return s.path }

// Targets returns a copy of all targets.
func (s *TargetStore) Targets() [gesture.NumSlots]gesture.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets
}

// Target returns one slot.
func (s *TargetStore) Target(slot gesture.Slot) gesture.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets[slot]
}

// HolsterCutoff returns the persisted cutoff.
func (s *TargetStore) HolsterCutoff() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holsterCutoff
}

// Set stores a target and saves.
func (s *TargetStore) Set(slot gesture.Slot, t gesture.Target) error {
	if slot < 0 || slot >= gesture.NumSlots {
		return fmt.Errorf("invalid slot %d", int(slot))
	}
	s.mu.Lock()
	s.targets[slot] = t
	s.mu.Unlock()
	log.Printf("config: set %s target pos=%v rot=%v", slot.Name(), t.Position, t.Rotation)
	return s.Save()
}

// Reset restores a slot to its default and saves.
func (s *TargetStore) Reset(slot gesture.Slot) error {
	return s.Set(slot, DefaultTarget(slot))
}

// SetHolsterCutoff stores the cutoff and saves.
func (s *TargetStore) SetHolsterCutoff(v float64) error {
	s.mu.Lock()
	s.holsterCutoff = v
	s.mu.Unlock()
	return s.Save()
}

// Save writes the store to disk.
func (s *TargetStore) Save() error {
	s.mu.Lock()
	doc := map[string]any{holsterCutoffKey: s.holsterCutoff}
	for slot := gesture.Slot(0); slot < gesture.NumSlots; slot++ {
		doc[slot.Name()+"_pos"] = s.targets[slot].Position
		doc[slot.Name()+"_rot"] = s.targets[slot].Rotation
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode targets: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write targets file: %w", err)
	}
	return nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/pose_bridge/internal/config"
	"github.com/relabs-tech/pose_bridge/internal/gesture"
	"github.com/relabs-tech/pose_bridge/internal/ipc"
	"github.com/relabs-tech/pose_bridge/internal/keys"
	"github.com/relabs-tech/pose_bridge/internal/tracking"
)

const uinputDeviceName = "pose-bridge virtual keyboard"

// RunTracker runs the bridge with the global configuration until SIGINT/SIGTERM.
func RunTracker() error {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := config.OpenTargetStore(cfg.TargetsFile, cfg.HolsterCutoff)
	if err != nil {
		log.Printf("tracker: targets store: %v", err)
	}

	sink, closeSink := openKeySink(cfg)
	defer closeSink()

	mod, closeMod := openModifier(cfg)
	defer closeMod()

	loop := NewLoop(LoopOptions{
		Source:    openPoseSource(cfg),
		Sink:      sink,
		Modifier:  mod,
		Store:     store,
		Publisher: ipc.NewPublisher(ipc.OSFileSystem{}, cfg.GameDir),
		Interval:  time.Duration(cfg.SampleIntervalMS) * time.Millisecond,
		Tolerance: gesture.Tolerance{Position: cfg.PosTolerance, Rotation: cfg.RotTolerance},
	})

	if cfg.MQTTBroker != "" {
		mirror, client, err := ConnectMQTTMirror(cfg)
		if err != nil {
			log.Printf("tracker: MQTT mirror disabled: %v", err)
		} else {
			defer client.Disconnect(250)
			loop.AddObserver(mirror.Observe)
		}
	}

	if cfg.WebServerPort > 0 {
		web := NewWebServer(cfg.WebServerPort, loop)
		loop.AddObserver(web.Observe)
		go func() {
			if err := web.ListenAndServe(ctx); err != nil {
				log.Printf("tracker: web server error: %v", err)
			}
		}()
	}

	return loop.Run(ctx)
}

// openPoseSource never fails: a source that cannot start is reported
// once and replaced by one with no devices.
func openPoseSource(cfg *config.Config) tracking.Source {
	switch cfg.PoseSource {
	case config.PoseSourceReplay:
		src, err := tracking.NewReplaySource(cfg.ReplayFile)
		if err != nil {
			log.Printf("tracker: pose source init failed: %v, running with no devices", err)
			return tracking.NewAbsentSource()
		}
		log.Printf("tracker: replaying poses from %s", cfg.ReplayFile)
		return src
	default:
		log.Println("tracker: using mock pose source")
		return tracking.NewMockSource()
	}
}

func openKeySink(cfg *config.Config) (keys.Sink, func()) {
	if cfg.KeySink == config.KeySinkUinput {
		s, err := keys.NewUinputSink(uinputDeviceName)
		if err == nil {
			log.Println("tracker: sending keys through uinput")
			return s, func() { s.Close() }
		}
		log.Printf("tracker: uinput unavailable: %v, logging keys instead", err)
	}
	return keys.LogSink{}, func() {}
}

func openModifier(cfg *config.Config) (keys.Modifier, func()) {
	if cfg.ModifierDevice == "" {
		return keys.NoModifier{}, func() {}
	}
	m, err := keys.NewEvdevModifier(cfg.ModifierDevice)
	if err != nil {
		log.Printf("tracker: drag modifier disabled: %v", err)
		return keys.NoModifier{}, func() {}
	}
	log.Printf("tracker: watching %s for the drag key", cfg.ModifierDevice)
	return m, func() { m.Close() }
}

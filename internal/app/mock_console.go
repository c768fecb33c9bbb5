// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/relabs-tech/pose_bridge/internal/config"
	"github.com/relabs-tech/pose_bridge/internal/ipc"
	"github.com/relabs-tech/pose_bridge/internal/keys"
	"github.com/relabs-tech/pose_bridge/internal/tracking"
)

// RunMockConsole runs the loop against the mock source in a scratch
// game directory and prints a line every 100ms.
func RunMockConsole() error {
	root, err := os.MkdirTemp("", "pose-bridge-mock-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(root)

	store, err := config.OpenTargetStore(filepath.Join(root, "targets.json"), ipc.DefaultHolsterCutoff)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := NewLoop(LoopOptions{
		Source:    tracking.NewMockSource(),
		Sink:      keys.LogSink{},
		Store:     store,
		Publisher: ipc.NewPublisher(ipc.OSFileSystem{}, root),
	})

	var last time.Time
	secondaryPicked := false
	loop.AddObserver(func(s Snapshot) {
		// Use the second mock controller as secondary so gestures are evaluated.
		if !secondaryPicked && s.Controllers >= 2 {
			loop.Submit(Command{Action: ActionCycleSecondary})
			loop.Submit(Command{Action: ActionCycleSecondary})
			secondaryPicked = true
		}
		if s.Time.Sub(last) < 100*time.Millisecond {
			return
		}
		last = s.Time
		fmt.Printf(
			"P[%s] YAW=%7.2f PITCH=%7.2f ROLL=%7.2f  S[%s] %-10s  %s\n",
			s.PrimaryRole, s.Primary.Yaw, s.Primary.Pitch, s.Primary.Roll,
			s.SecondaryRole, s.Status, s.Payload,
		)
	})

	return loop.Run(ctx)
}

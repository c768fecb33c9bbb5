package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/pose_bridge/internal/config"
	"github.com/relabs-tech/pose_bridge/internal/tracking"
)

// RunRecorder samples the configured pose source and appends every frame
// to out, in the format the replay source reads. limit <= 0 records until
// SIGINT/SIGTERM.
func RunRecorder(out string, limit int) error {
	cfg := config.Get()

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.SampleIntervalMS) * time.Millisecond
	n, err := record(ctx, openPoseSource(cfg), tracking.NewFrameWriter(f), interval, limit)
	log.Printf("recorder: wrote %d frames to %s", n, out)
	return err
}

func record(ctx context.Context, src tracking.Source, fw *tracking.FrameWriter, interval time.Duration, limit int) (int, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	written := 0
	for limit <= 0 || written < limit {
		select {
		case <-ctx.Done():
			return written, nil
		case <-ticker.C:
		}

		fr, err := src.Sample()
		if err != nil {
			log.Printf("recorder: sample error: %v", err)
			continue
		}
		if err := fw.Write(fr); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

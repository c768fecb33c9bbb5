package tracking

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmptyReplay is returned when a replay file has no usable frames.
var ErrEmptyReplay = errors.New("tracking: replay has no frames")

type replaySource struct {
	frames []Frame
	next   int
}

// NewReplaySource loads recorded frames (one JSON Frame per line) from
// path. Sampling loops back to the first frame at the end.
func NewReplaySource(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	frames, err := ReadFrames(f)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	return &replaySource{frames: frames}, nil
}

// ReadFrames parses JSON-lines frames. Blank lines and '#' comments are skipped.
func ReadFrames(r io.Reader) ([]Frame, error) {
	var frames []Frame
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var fr Frame
		if err := json.Unmarshal([]byte(line), &fr); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		frames = append(frames, fr)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, ErrEmptyReplay
	}
	return frames, nil
}

func (s *replaySource) Sample() (Frame, error) {
	fr := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	return fr, nil
}

// FrameWriter appends frames in the format ReadFrames accepts.
type FrameWriter struct {
	enc *json.Encoder
}

// NewFrameWriter wraps w. Each frame becomes one JSON line.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{enc: json.NewEncoder(w)}
}

// Write encodes fr as a single line.
func (fw *FrameWriter) Write(fr Frame) error {
	if err := fw.enc.Encode(fr); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

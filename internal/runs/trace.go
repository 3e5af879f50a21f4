package runs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TraceName is the progress trace file inside a run directory.
const TraceName = "trace.jsonl"

// Event kinds recorded in the trace.
const (
	EventTileDone         = "tile_done"
	EventColorDone        = "color_done"
	EventCalibrationRound = "calibration_round"
)

// Event is one progress record, serialized as a JSON line in trace.jsonl.
// Tile is -1 for events not tied to a tile, matching the whole-image
// convention on detections.
type Event struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Tile      int       `json:"tile"`
	Color     string    `json:"color,omitempty"`
	Circles   int       `json:"circles"`
	Round     int       `json:"round,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// TileDone records a finished tile.
func TileDone(tile, circles int) Event {
	return Event{Kind: EventTileDone, Tile: tile, Circles: circles}
}

// ColorDone records a finished per-color pass.
func ColorDone(color string, circles int) Event {
	return Event{Kind: EventColorDone, Tile: -1, Color: color, Circles: circles}
}

// CalibrationRound records one calibration attempt.
func CalibrationRound(round int, message string) Event {
	return Event{Kind: EventCalibrationRound, Tile: -1, Round: round, Message: message}
}

// TraceWriter appends events to a run's trace.jsonl. It uses buffered I/O
// and is safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTraceWriter creates trace.jsonl in the run directory, truncating any
// previous trace.
func NewTraceWriter(runDir string) (*TraceWriter, error) {
	path := filepath.Join(runDir, TraceName)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write appends one event. A zero timestamp is filled in.
func (tw *TraceWriter) Write(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal trace event: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace event: %w", err)
	}
	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Flush pushes buffered events to disk.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace: %w", err)
	}
	return nil
}

// Close flushes buffered events and closes the trace file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// Path returns the trace file location.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// ReadTrace loads all events from a run directory's trace. A missing
// trace is not an error; runs recorded without progress events return nil.
func ReadTrace(runDir string) ([]Event, error) {
	file, err := os.Open(filepath.Join(runDir, TraceName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var events []Event
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to parse trace event: %w", err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trace: %w", err)
	}
	return events, nil
}

package runs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewTraceWriter(dir)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	events := []Event{
		TileDone(0, 12),
		TileDone(1, 9),
		ColorDone("magenta", 21),
		CalibrationRound(2, "widened radius bounds"),
	}
	for _, e := range events {
		if err := writer.Write(e); err != nil {
			t.Fatalf("Failed to write event: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	read, err := ReadTrace(dir)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(read) != len(events) {
		t.Fatalf("Expected %d events, got %d", len(events), len(read))
	}

	if read[0].Kind != EventTileDone || read[0].Tile != 0 || read[0].Circles != 12 {
		t.Errorf("First event = %+v, want tile_done tile=0 circles=12", read[0])
	}
	if read[2].Kind != EventColorDone || read[2].Color != "magenta" || read[2].Tile != -1 {
		t.Errorf("Color event = %+v, want color_done magenta tile=-1", read[2])
	}
	if read[3].Round != 2 || read[3].Message != "widened radius bounds" {
		t.Errorf("Calibration event = %+v", read[3])
	}
	for i, e := range read {
		if e.Timestamp.IsZero() {
			t.Errorf("Event %d has zero timestamp", i)
		}
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewTraceWriter(dir)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	defer writer.Close()

	if err := writer.Write(TileDone(0, 3)); err != nil {
		t.Fatalf("Failed to write event: %v", err)
	}
	if err := writer.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	// Data should be on disk before close.
	data, err := os.ReadFile(filepath.Join(dir, TraceName))
	if err != nil {
		t.Fatalf("Failed to read trace file: %v", err)
	}
	if len(data) == 0 {
		t.Error("Trace file is empty after flush")
	}
}

func TestTraceWriter_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewTraceWriter(dir)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(tile int) {
			if err := writer.Write(TileDone(tile, tile)); err != nil {
				t.Errorf("Concurrent write failed: %v", err)
			}
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	events, err := ReadTrace(dir)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(events) != 10 {
		t.Errorf("Expected 10 events, got %d", len(events))
	}
}

func TestReadTrace_Missing(t *testing.T) {
	events, err := ReadTrace(t.TempDir())
	if err != nil {
		t.Fatalf("Missing trace should not error, got: %v", err)
	}
	if events != nil {
		t.Errorf("Expected nil events, got %d", len(events))
	}
}

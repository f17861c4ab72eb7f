package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio", CodecName: "opus", SampleRate: "48000", Channels: 2},
			{CodecType: "audio"},
		},
		Format: Format{Duration: "3.25", Size: "1000"},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	primary, ok := result.PrimaryAudio()
	if !ok || primary.CodecName != "opus" {
		t.Fatalf("unexpected primary audio: %#v", primary)
	}
	if primary.SampleRateHz() != 48000 {
		t.Fatalf("unexpected sample rate: %d", primary.SampleRateHz())
	}
	if result.DurationSeconds() != 3.25 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if (Result{Format: Format{Duration: "N/A"}}).DurationSeconds() != 0 {
		t.Fatal("expected N/A duration to read as 0")
	}
	if _, ok := (Result{}).PrimaryAudio(); ok {
		t.Fatal("expected no primary audio")
	}
}

func TestInspectBytesParsesStubOutput(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat >/dev/null\necho '{\"streams\":[{\"codec_type\":\"audio\",\"sample_rate\":\"16000\",\"channels\":1}],\"format\":{\"duration\":\"1.5\"}}'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	result, err := InspectBytes(context.Background(), stub, []byte("payload"))
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}
	if result.AudioStreamCount() != 1 || result.DurationSeconds() != 1.5 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if _, err := InspectBytes(context.Background(), stub, nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

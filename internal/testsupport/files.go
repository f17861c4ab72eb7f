package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"voicecollect/internal/media/wav"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WAVClip returns a 16-bit PCM WAV of the given rate, channel count and
// frame count filled with a low-amplitude ramp.
func WAVClip(t testing.TB, sampleRate, channels, frames int) []byte {
	t.Helper()

	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = int16(i % 512)
	}
	data, err := wav.Encode(wav.Audio{SampleRate: sampleRate, Channels: channels, Samples: samples})
	if err != nil {
		t.Fatalf("encode wav fixture: %v", err)
	}
	return data
}

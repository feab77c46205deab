package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"studyscribe/internal/audio"
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
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteWAV writes a canonical 16 kHz mono PCM file of the given length. The
// samples are a ramp so each window of a split has distinct content.
func WriteWAV(t testing.TB, path string, seconds float64) {
	t.Helper()
	WriteWAVFormat(t, path, audio.CanonicalFormat(), seconds)
}

// WriteWAVFormat writes a 16-bit PCM file with an arbitrary rate and channel count.
func WriteWAVFormat(t testing.TB, path string, format audio.Format, seconds float64) {
	t.Helper()

	frames := int(seconds * float64(format.SampleRate))
	samples := make([]byte, frames*format.BlockAlign())
	for i := 0; i < frames*int(format.Channels); i++ {
		binary.LittleEndian.PutUint16(samples[i*2:], uint16(i%4096))
	}

	var buf bytes.Buffer
	if err := audio.EncodeHeader(&buf, format, int64(len(samples))); err != nil {
		t.Fatalf("encode wav header: %v", err)
	}
	buf.Write(samples)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Canonical waveform parameters.
const (
	CanonicalSampleRate    = 16000
	CanonicalChannels      = 1
	CanonicalBitsPerSample = 16

	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// ErrNotWAV reports that a file is not a RIFF/WAVE container this package can read.
var ErrNotWAV = errors.New("not a PCM wav file")

// Format is the subset of the WAVE fmt chunk needed to slice audio.
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// CanonicalFormat returns the format produced by normalization.
func CanonicalFormat() Format {
	return Format{
		AudioFormat:   formatPCM,
		Channels:      CanonicalChannels,
		SampleRate:    CanonicalSampleRate,
		BitsPerSample: CanonicalBitsPerSample,
	}
}

// BlockAlign is the size in bytes of one sample frame.
func (f Format) BlockAlign() int {
	return int(f.Channels) * int(f.BitsPerSample) / 8
}

// ByteRate is the number of data bytes per second of audio.
func (f Format) ByteRate() int {
	return int(f.SampleRate) * f.BlockAlign()
}

// IsCanonical reports whether f matches the normalized format.
func (f Format) IsCanonical() bool {
	pcm := f.AudioFormat == formatPCM || f.AudioFormat == formatExtensible
	return pcm && f.Channels == CanonicalChannels && f.SampleRate == CanonicalSampleRate &&
		f.BitsPerSample == CanonicalBitsPerSample
}

// Header locates the sample data inside a WAVE file.
type Header struct {
	Format     Format
	DataOffset int64
	DataSize   int64
}

// Frames is the number of complete sample frames in the data chunk.
func (h Header) Frames() int64 {
	align := h.Format.BlockAlign()
	if align <= 0 {
		return 0
	}
	return h.DataSize / int64(align)
}

// Duration is the playback length of the data chunk.
func (h Header) Duration() time.Duration {
	if h.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(h.Frames()) * time.Second / time.Duration(h.Format.SampleRate)
}

// Inspect reads the header of the WAVE file at path.
func Inspect(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Header{}, err
	}
	return ReadHeader(f, info.Size())
}

// ReadHeader walks the RIFF chunk list until it has seen both the fmt and
// data chunks. size is the total stream length; a data chunk that claims more
// bytes than remain (streamed ffmpeg output) is truncated to the real length.
func ReadHeader(r io.ReadSeeker, size int64) (Header, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Header{}, fmt.Errorf("%w: short header", ErrNotWAV)
	}
	if !bytes.Equal(riff[0:4], []byte("RIFF")) || !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return Header{}, fmt.Errorf("%w: missing RIFF/WAVE tags", ErrNotWAV)
	}

	var (
		header  Header
		haveFmt bool
		offset  int64 = 12
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return Header{}, fmt.Errorf("%w: data chunk not found", ErrNotWAV)
		}
		offset += 8
		id := string(chunk[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if chunkSize < 16 {
				return Header{}, fmt.Errorf("%w: fmt chunk too small", ErrNotWAV)
			}
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return Header{}, fmt.Errorf("%w: truncated fmt chunk", ErrNotWAV)
			}
			header.Format = Format{
				AudioFormat:   binary.LittleEndian.Uint16(body[0:2]),
				Channels:      binary.LittleEndian.Uint16(body[2:4]),
				SampleRate:    binary.LittleEndian.Uint32(body[4:8]),
				BitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
			}
			haveFmt = true
			if chunkSize%2 == 1 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return Header{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
				}
			}
		case "data":
			if !haveFmt {
				return Header{}, fmt.Errorf("%w: data chunk precedes fmt chunk", ErrNotWAV)
			}
			header.DataOffset = offset
			header.DataSize = min(chunkSize, size-offset)
			if header.Format.BlockAlign() <= 0 {
				return Header{}, fmt.Errorf("%w: invalid block alignment", ErrNotWAV)
			}
			return header, nil
		default:
			if _, err := r.Seek(chunkSize+chunkSize%2, io.SeekCurrent); err != nil {
				return Header{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
			}
		}
		offset += chunkSize + chunkSize%2
	}
}

// EncodeHeader writes a 44-byte canonical PCM header for dataSize bytes of samples.
func EncodeHeader(w io.Writer, format Format, dataSize int64) error {
	if dataSize < 0 || dataSize > 0xFFFFFFFF-36 {
		return fmt.Errorf("wav data size %d out of range", dataSize)
	}
	var buf [44]byte
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], format.Channels)
	binary.LittleEndian.PutUint32(buf[24:28], format.SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(format.ByteRate()))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(format.BlockAlign()))
	binary.LittleEndian.PutUint16(buf[34:36], format.BitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	_, err := w.Write(buf[:])
	return err
}

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
	headerSize       = 44
)

// ErrNotWAV reports input that does not carry a RIFF/WAVE signature.
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// Header is the canonical 44-byte PCM WAV header.
type Header struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// Audio holds decoded PCM samples as interleaved int16 frames.
type Audio struct {
	SampleRate int
	Channels   int
	// Samples are interleaved when Channels > 1.
	Samples []int16
}

// Frames returns the number of sample frames.
func (a Audio) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Duration returns the playback length.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(a.Frames()) / float64(a.SampleRate) * float64(time.Second))
}

// IsWAV reports whether data starts with a RIFF/WAVE signature.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// Decode parses a PCM WAV stream. It walks the chunk list so files carrying
// LIST or fact chunks before the data chunk decode correctly. 8, 16, 24 and
// 32-bit integer PCM are accepted and converted to 16-bit.
func Decode(data []byte) (Audio, error) {
	if !IsWAV(data) {
		return Audio{}, ErrNotWAV
	}
	var (
		haveFmt       bool
		audioFormat   uint16
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		payload       []byte
	)
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		end := body + size
		if id == "data" && (size == 0 || end > len(data)) {
			// Encoders writing to a pipe cannot seek back to patch the size.
			end = len(data)
			size = end - body
		}
		if end > len(data) {
			return Audio{}, fmt.Errorf("chunk %q overruns stream", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Audio{}, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			if audioFormat == formatExtensible && size >= 26 {
				audioFormat = binary.LittleEndian.Uint16(data[body+24 : body+26])
			}
			haveFmt = true
		case "data":
			payload = data[body:end]
		}
		if payload != nil && haveFmt {
			break
		}
		// Chunks are word aligned.
		offset = end + (size & 1)
	}

	if !haveFmt {
		return Audio{}, errors.New("invalid WAV file: missing fmt chunk")
	}
	if payload == nil {
		return Audio{}, errors.New("invalid WAV file: missing data chunk")
	}
	if audioFormat != formatPCM {
		return Audio{}, fmt.Errorf("unsupported audio format: %d (only integer PCM is supported)", audioFormat)
	}
	if channels == 0 {
		return Audio{}, errors.New("invalid WAV file: zero channels")
	}
	if sampleRate == 0 {
		return Audio{}, errors.New("invalid WAV file: zero sample rate")
	}

	samples, err := decodeSamples(payload, bitsPerSample)
	if err != nil {
		return Audio{}, err
	}
	if len(samples) == 0 {
		return Audio{}, errors.New("no audio data found")
	}
	// Drop a trailing partial frame.
	samples = samples[:len(samples)-len(samples)%int(channels)]
	return Audio{SampleRate: int(sampleRate), Channels: int(channels), Samples: samples}, nil
}

func decodeSamples(payload []byte, bits uint16) ([]int16, error) {
	switch bits {
	case 8:
		out := make([]int16, len(payload))
		for i, b := range payload {
			out[i] = int16(int(b)-128) << 8
		}
		return out, nil
	case 16:
		out := make([]int16, len(payload)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(payload[i*2:]))
		}
		return out, nil
	case 24:
		out := make([]int16, len(payload)/3)
		for i := range out {
			p := payload[i*3:]
			v := int32(p[0]) | int32(p[1])<<8 | int32(int8(p[2]))<<16
			out[i] = int16(v >> 8)
		}
		return out, nil
	case 32:
		out := make([]int16, len(payload)/4)
		for i := range out {
			out[i] = int16(int32(binary.LittleEndian.Uint32(payload[i*4:])) >> 16)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", bits)
	}
}

// Encode writes 16-bit PCM with the canonical 44-byte header.
func Encode(a Audio) ([]byte, error) {
	if len(a.Samples) == 0 {
		return nil, errors.New("cannot encode empty audio samples")
	}
	if a.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", a.SampleRate)
	}
	if a.Channels <= 0 || a.Channels > math.MaxUint16 {
		return nil, fmt.Errorf("channel count out of range: %d", a.Channels)
	}
	const bitsPerSample = 16
	channels := uint16(a.Channels)
	dataSize := uint32(len(a.Samples) * 2)
	header := Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   channels,
		SampleRate:    uint32(a.SampleRate),
		ByteRate:      uint32(a.SampleRate) * uint32(channels) * bitsPerSample / 8,
		BlockAlign:    channels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(a.Samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, a.Samples); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	return buf.Bytes(), nil
}

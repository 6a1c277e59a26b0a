package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size of the canonical PCM WAV header produced by
// EncodeWAV. The analysis backend depends on this exact layout.
const HeaderSize = 44

// wavHeader is the 44-byte RIFF/WAVE/fmt/data header for mono 16-bit PCM.
// All multi-byte fields are little-endian on the wire.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data length
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 = PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * 2
	BlockAlign    uint16 // NumChannels * 2
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // data length in bytes
}

// EncodeWAV serializes mono 16-bit PCM samples into a canonical WAV
// container: the 44-byte header followed by little-endian samples.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty sample buffer")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * 2)
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write PCM data: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeWAV parses a canonical mono 16-bit PCM WAV container back into
// samples and the declared sample rate.
func DecodeWAV(data []byte) ([]int16, int, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, 0, err
	}

	numSamples := int(header.Subchunk2Size) / 2
	if numSamples <= 0 {
		return nil, 0, fmt.Errorf("no audio data in container")
	}

	samples := make([]int16, numSamples)
	r := bytes.NewReader(data[HeaderSize:])
	if err := binary.Read(r, binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("failed to read PCM samples: %w", err)
	}

	return samples, int(header.SampleRate), nil
}

// ValidateWAV checks that data carries the canonical mono 16-bit PCM header
// without reading the audio payload.
func ValidateWAV(data []byte) error {
	_, err := parseHeader(data)
	return err
}

// WAVInfo describes a WAV container's declared format.
type WAVInfo struct {
	SampleRate    int     `json:"sample_rate"`
	Channels      int     `json:"channels"`
	BitsPerSample int     `json:"bits_per_sample"`
	NumSamples    int     `json:"num_samples"`
	Duration      float64 `json:"duration_seconds"`
}

// GetWAVInfo extracts format metadata from a WAV container.
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	numSamples := int(header.Subchunk2Size) / 2
	return &WAVInfo{
		SampleRate:    int(header.SampleRate),
		Channels:      int(header.NumChannels),
		BitsPerSample: int(header.BitsPerSample),
		NumSamples:    numSamples,
		Duration:      float64(numSamples) / float64(header.SampleRate),
	}, nil
}

func parseHeader(data []byte) (*wavHeader, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV: missing RIFF marker")
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV: missing WAVE marker")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, fmt.Errorf("invalid WAV: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("invalid WAV: missing data chunk")
	}
	if header.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format %d: only PCM is supported", header.AudioFormat)
	}
	if header.NumChannels != 1 {
		return nil, fmt.Errorf("unsupported channel count %d: only mono is supported", header.NumChannels)
	}
	if header.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d: only 16-bit is supported", header.BitsPerSample)
	}
	if header.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	return &header, nil
}

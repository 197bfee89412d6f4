package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/orcaman/writerseeker"
)

// Utterance is one captured phrase of 16-bit little-endian mono PCM
type Utterance struct {
	ID         uuid.UUID
	CapturedAt time.Time
	SampleRate int
	PCM        []byte
}

// NewUtterance wraps a PCM buffer captured at sampleRate
func NewUtterance(pcm []byte, sampleRate int) *Utterance {
	return &Utterance{
		ID:         uuid.New(),
		CapturedAt: time.Now(),
		SampleRate: sampleRate,
		PCM:        pcm,
	}
}

// Duration returns the playback length of the utterance
func (u *Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	samples := len(u.PCM) / 2
	return time.Duration(samples) * time.Second / time.Duration(u.SampleRate)
}

// WAV encodes the utterance as a RIFF WAV file
func (u *Utterance) WAV() ([]byte, error) {
	samples := make([]int, len(u.PCM)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(u.PCM[i*2:])))
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: u.SampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}

	ws := &writerseeker.WriterSeeker{}
	encoder := wav.NewEncoder(ws, u.SampleRate, 16, 1, 1)
	if err := encoder.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write wav samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}

	data, err := io.ReadAll(ws.Reader())
	if err != nil {
		return nil, fmt.Errorf("failed to read wav into memory: %w", err)
	}
	return data, nil
}

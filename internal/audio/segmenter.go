package audio

import (
	"context"
	"errors"
	"time"

	"github.com/yegors/co-translate/pkg/logger"
)

// ErrSourceClosed is returned when the frame stream ends before speech starts
var ErrSourceClosed = errors.New("audio source closed")

const (
	FrameMs       = 20
	vadDebounce   = 3  // consecutive speech frames to confirm voice
	preRollFrames = 10 // audio kept from before speech onset
	stallTimeout  = 2 * time.Second
)

// VoiceDetector classifies one frame as speech or not
type VoiceDetector interface {
	IsSpeech(frame []byte) (bool, error)
}

// SegmenterConfig holds utterance segmentation settings
type SegmenterConfig struct {
	SampleRate int
	Pause      time.Duration // trailing silence that ends a phrase
	MinSpeech  time.Duration // voiced audio required for a usable phrase
}

// Segmenter cuts a stream of fixed size frames into utterances
type Segmenter struct {
	cfg    SegmenterConfig
	frames <-chan []byte
	vad    VoiceDetector
	logger *logger.Logger
}

// NewSegmenter creates a segmenter reading FrameMs frames from frames
func NewSegmenter(cfg SegmenterConfig, frames <-chan []byte, vad VoiceDetector, logger *logger.Logger) *Segmenter {
	return &Segmenter{
		cfg:    cfg,
		frames: frames,
		vad:    vad,
		logger: logger.Named("segmenter"),
	}
}

// FrameBytes returns the size of one frame at sampleRate
func FrameBytes(sampleRate int) int {
	return sampleRate * FrameMs / 1000 * 2
}

func framesIn(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	n := int(d / (FrameMs * time.Millisecond))
	if d%(FrameMs*time.Millisecond) != 0 {
		n++
	}
	return n
}

// Listen implements Source. Frames that queued up between calls are
// discarded except for the newest pre-roll window, so a phrase that began
// just before Listen keeps its onset.
func (s *Segmenter) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (*Utterance, error) {
	return s.listen(ctx, s.drain(), timeout, phraseLimit)
}

// listen consumes backlog before reading new frames
func (s *Segmenter) listen(ctx context.Context, backlog [][]byte, timeout, phraseLimit time.Duration) (*Utterance, error) {
	waitFrames := framesIn(timeout)
	phraseFrames := framesIn(phraseLimit)
	pauseFrames := framesIn(s.cfg.Pause)
	minSpeechFrames := framesIn(s.cfg.MinSpeech)

	var (
		preRoll  [][]byte
		run      int
		waited   int
		started  bool
		buf      []byte
		captured int
		voiced   int
		silence  int
	)

	finish := func() (*Utterance, error) {
		if voiced < minSpeechFrames {
			s.logger.Debug("Discarding short phrase",
				Int("voiced_frames", voiced),
				Int("required", minSpeechFrames))
			return nil, ErrUnintelligible
		}
		u := NewUtterance(buf, s.cfg.SampleRate)
		s.logger.Debug("Captured utterance",
			String("id", u.ID.String()),
			Duration("duration", u.Duration()))
		return u, nil
	}

	stall := time.NewTimer(stallTimeout)
	defer stall.Stop()

	for {
		var (
			frame []byte
			ok    bool
		)
		if len(backlog) > 0 {
			frame, ok = backlog[0], true
			backlog = backlog[1:]
		} else {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()

			case <-stall.C:
				if started {
					return finish()
				}
				return nil, ErrNoSpeech

			case frame, ok = <-s.frames:
			}
		}

		if !ok {
			if started {
				return finish()
			}
			return nil, ErrSourceClosed
		}
		if !stall.Stop() {
			select {
			case <-stall.C:
			default:
			}
		}
		stall.Reset(stallTimeout)

		speech, err := s.vad.IsSpeech(frame)
		if err != nil {
			speech = false
		}

		if !started {
			waited++
			preRoll = append(preRoll, frame)
			if len(preRoll) > preRollFrames {
				preRoll = preRoll[1:]
			}
			if speech {
				run++
			} else {
				run = 0
			}
			if run >= vadDebounce {
				started = true
				for _, f := range preRoll {
					buf = append(buf, f...)
				}
				captured = len(preRoll)
				voiced = run
				preRoll = nil
				if phraseFrames > 0 && captured >= phraseFrames {
					return finish()
				}
				continue
			}
			if waitFrames > 0 && waited >= waitFrames {
				return nil, ErrNoSpeech
			}
			continue
		}

		buf = append(buf, frame...)
		captured++
		if speech {
			voiced++
			silence = 0
		} else {
			silence++
		}
		if pauseFrames > 0 && silence >= pauseFrames {
			return finish()
		}
		if phraseFrames > 0 && captured >= phraseFrames {
			return finish()
		}
	}
}

// drain empties the frames buffered while nobody was listening and returns
// the newest preRollFrames of them
func (s *Segmenter) drain() [][]byte {
	var kept [][]byte
	for {
		select {
		case f, ok := <-s.frames:
			if !ok {
				return kept
			}
			kept = append(kept, f)
			if len(kept) > preRollFrames {
				kept = kept[1:]
			}
		default:
			return kept
		}
	}
}

// framer regroups arbitrary chunks into fixed size frames
type framer struct {
	size int
	buf  []byte
}

func (f *framer) push(data []byte) [][]byte {
	f.buf = append(f.buf, data...)
	var out [][]byte
	for len(f.buf) >= f.size {
		frame := make([]byte, f.size)
		copy(frame, f.buf[:f.size])
		out = append(out, frame)
		f.buf = f.buf[f.size:]
	}
	return out
}

// Import logger functions
var (
	String   = logger.String
	Int      = logger.Int
	Duration = logger.Duration
	Error    = logger.Error
)

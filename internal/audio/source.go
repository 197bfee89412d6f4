package audio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSpeech means the listen timeout passed without speech starting
	ErrNoSpeech = errors.New("no speech detected")
	// ErrUnintelligible means audio was captured but holds no usable speech
	ErrUnintelligible = errors.New("audio could not be understood")
)

// Source produces one utterance per call. Listen blocks until speech has
// started and ended, timeout passes without speech, or ctx is done.
type Source interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (*Utterance, error)
}

// IsBenign reports whether err is an expected capture outcome that should
// not be shown as an error
func IsBenign(err error) bool {
	return errors.Is(err, ErrNoSpeech) || errors.Is(err, ErrUnintelligible)
}

package transcription

import (
	"context"

	"github.com/yegors/co-translate/internal/audio"
	"github.com/yegors/co-translate/pkg/logger"
)

// Transcriber converts an utterance to text. It fails with
// audio.ErrUnintelligible when the service returns no words.
// There are no internal retries.
type Transcriber interface {
	Transcribe(ctx context.Context, u *audio.Utterance) (string, error)
}

// Import logger functions
var (
	String   = logger.String
	Int      = logger.Int
	Duration = logger.Duration
	Error    = logger.Error
)

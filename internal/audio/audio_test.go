package audio

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yegors/co-translate/pkg/logger"
)

const testRate = 16000

// byteVAD treats a frame as speech when its first byte is non-zero
type byteVAD struct{}

func (byteVAD) IsSpeech(frame []byte) (bool, error) {
	return len(frame) > 0 && frame[0] != 0, nil
}

func frame(speech bool) []byte {
	f := make([]byte, FrameBytes(testRate))
	if speech {
		f[0] = 1
	}
	return f
}

// feed queues frames; the channel is closed after the last one
func feed(pattern ...[2]int) <-chan []byte {
	total := 0
	for _, p := range pattern {
		total += p[1]
	}
	ch := make(chan []byte, total)
	for _, p := range pattern {
		for i := 0; i < p[1]; i++ {
			ch <- frame(p[0] == 1)
		}
	}
	close(ch)
	return ch
}

func newTestSegmenter(frames <-chan []byte) *Segmenter {
	return NewSegmenter(SegmenterConfig{
		SampleRate: testRate,
		Pause:      200 * time.Millisecond,
		MinSpeech:  100 * time.Millisecond,
	}, frames, byteVAD{}, logger.NewNop())
}

// listenOn skips the drain in Listen so every pre-queued frame is used
func listenOn(t *testing.T, seg *Segmenter, timeout, limit time.Duration) (*Utterance, error) {
	t.Helper()
	return seg.listen(context.Background(), nil, timeout, limit)
}

func TestSegmenterCapturesPhrase(t *testing.T) {
	seg := newTestSegmenter(feed([2]int{0, 5}, [2]int{1, 20}, [2]int{0, 15}))

	u, err := listenOn(t, seg, time.Second, 10*time.Second)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	// 5 pre-roll frames, 20 speech frames, 10 trailing silence frames.
	wantFrames := 5 + 20 + 10
	if got := len(u.PCM) / FrameBytes(testRate); got != wantFrames {
		t.Fatalf("captured %d frames, want %d", got, wantFrames)
	}
	if u.SampleRate != testRate {
		t.Fatalf("sample rate = %d", u.SampleRate)
	}
}

func TestSegmenterTimesOutWithoutSpeech(t *testing.T) {
	seg := newTestSegmenter(feed([2]int{0, 100}))

	_, err := listenOn(t, seg, 500*time.Millisecond, 10*time.Second)
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
	if !IsBenign(err) {
		t.Fatal("ErrNoSpeech should be benign")
	}
}

func TestSegmenterShortBurstIsUnintelligible(t *testing.T) {
	// Three voiced frames start a phrase but 60ms is below the minimum.
	seg := newTestSegmenter(feed([2]int{1, 3}, [2]int{0, 20}))

	_, err := listenOn(t, seg, time.Second, 10*time.Second)
	if !errors.Is(err, ErrUnintelligible) {
		t.Fatalf("err = %v, want ErrUnintelligible", err)
	}
}

func TestSegmenterPhraseLimit(t *testing.T) {
	seg := newTestSegmenter(feed([2]int{1, 200}))

	u, err := listenOn(t, seg, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if got := u.Duration(); got != time.Second {
		t.Fatalf("duration = %v, want 1s", got)
	}
}

func TestSegmenterClosedSource(t *testing.T) {
	seg := newTestSegmenter(feed())

	_, err := listenOn(t, seg, time.Second, time.Second)
	if !errors.Is(err, ErrSourceClosed) {
		t.Fatalf("err = %v, want ErrSourceClosed", err)
	}
}

func TestSegmenterHonorsContext(t *testing.T) {
	seg := newTestSegmenter(make(chan []byte))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := seg.Listen(ctx, time.Second, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestListenKeepsOnsetQueuedBeforeCall(t *testing.T) {
	// Stale silence, then a phrase that started before Listen was called
	seg := newTestSegmenter(feed([2]int{0, 50}, [2]int{1, 6}))

	u, err := seg.Listen(context.Background(), time.Second, 10*time.Second)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	// Only the newest pre-roll window survives: 4 silence + 6 speech frames
	if got := len(u.PCM) / FrameBytes(testRate); got != preRollFrames {
		t.Fatalf("captured %d frames, want %d", got, preRollFrames)
	}
	speech := 0
	for i := 0; i < len(u.PCM); i += FrameBytes(testRate) {
		if u.PCM[i] != 0 {
			speech++
		}
	}
	if speech != 6 {
		t.Fatalf("kept %d speech frames, want 6", speech)
	}
}

func TestListenDropsStaleSilence(t *testing.T) {
	seg := newTestSegmenter(feed([2]int{0, 80}))

	_, err := seg.Listen(context.Background(), time.Second, 10*time.Second)
	if !errors.Is(err, ErrSourceClosed) {
		t.Fatalf("err = %v, want ErrSourceClosed", err)
	}
}

func TestFramer(t *testing.T) {
	f := framer{size: 4}
	if out := f.push([]byte{1, 2, 3}); len(out) != 0 {
		t.Fatalf("got %d frames from partial input", len(out))
	}
	out := f.push([]byte{4, 5, 6, 7, 8, 9})
	if len(out) != 2 {
		t.Fatalf("got %d frames, want 2", len(out))
	}
	if !bytes.Equal(out[0], []byte{1, 2, 3, 4}) || !bytes.Equal(out[1], []byte{5, 6, 7, 8}) {
		t.Fatalf("frames = %v", out)
	}
	if len(f.buf) != 1 {
		t.Fatalf("remainder = %v", f.buf)
	}
}

func TestUtteranceWAV(t *testing.T) {
	pcm := make([]byte, testRate*2/10) // 100ms
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = byte(i)
	}
	u := NewUtterance(pcm, testRate)

	if u.Duration() != 100*time.Millisecond {
		t.Fatalf("duration = %v", u.Duration())
	}

	data, err := u.WAV()
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		t.Fatalf("missing RIFF/WAVE header: %q", data[:12])
	}
	if len(data) < len(pcm)+44 {
		t.Fatalf("wav too short: %d bytes", len(data))
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yegors/co-translate/internal/audio"
	"github.com/yegors/co-translate/internal/languages"
	"github.com/yegors/co-translate/internal/storage/sqlite"
	"github.com/yegors/co-translate/internal/transcription"
	"github.com/yegors/co-translate/internal/translation"
	"github.com/yegors/co-translate/pkg/logger"
)

// State is the listening state of a session
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
)

var (
	// ErrAlreadyListening is returned by Start while a session is active
	ErrAlreadyListening = errors.New("session is already listening")
	// ErrNotListening is returned by Stop while idle
	ErrNotListening = errors.New("session is not listening")
	// ErrNoUtterance is returned by ReprocessLast before anything was captured
	ErrNoUtterance = errors.New("no audio captured yet")
)

// NoAudioMessage is shown when reprocessing is requested with nothing captured
const NoAudioMessage = "No audio captured yet. Please start listening first."

// Translator turns text into a non-empty translation
type Translator interface {
	Translate(ctx context.Context, text, source, target string) translation.Translation
}

// History persists finished translations
type History interface {
	Append(ctx context.Context, record *sqlite.TranslationRecord) (int64, error)
}

// Config holds the timing and concurrency settings of a session
type Config struct {
	ListenTimeout time.Duration
	PhraseLimit   time.Duration
	LoopDelay     time.Duration
	DefaultTarget string
	Workers       int
	QueueSize     int
}

// Deps are the collaborators a controller drives. History may be nil when
// persistence is disabled; Presenter may be nil.
type Deps struct {
	Source      audio.Source
	Transcriber transcription.Transcriber
	Detector    languages.Detector
	Translator  Translator
	History     History
	Presenter   Presenter
}

// Snapshot is a point-in-time view of the session
type Snapshot struct {
	State            State  `json:"state"`
	TargetLanguage   string `json:"target_language"`
	TargetName       string `json:"target_name"`
	TargetListed     bool   `json:"target_listed"` // false for valid codes outside the language table
	HasLastUtterance bool   `json:"has_last_utterance"`
	PendingJobs      int    `json:"pending_jobs"`
	HistoryEnabled   bool   `json:"history_enabled"`
}

// Controller owns the Idle/Listening state machine and the capture loop.
// Captured utterances are processed on a bounded worker pool and keep
// running after Stop.
type Controller struct {
	config Config
	deps   Deps
	logger *logger.Logger

	mu       sync.Mutex
	state    State
	target   string
	last     *audio.Utterance
	cancel   context.CancelFunc
	loopDone chan struct{}

	pool     *Pool
	notices  *noticeLimiter
	work     context.Context
	stopWork context.CancelFunc
}

// NewController creates an idle controller
func NewController(config Config, deps Deps, log *logger.Logger) *Controller {
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}
	if config.DefaultTarget == "" {
		config.DefaultTarget = "hi"
	}

	ctrlLogger := log.Named("session")
	work, stopWork := context.WithCancel(context.Background())

	return &Controller{
		config:   config,
		deps:     deps,
		logger:   ctrlLogger,
		state:    StateIdle,
		target:   languages.Normalize(config.DefaultTarget),
		pool:     NewPool(config.Workers, config.QueueSize, ctrlLogger),
		notices:  newNoticeLimiter(),
		work:     work,
		stopWork: stopWork,
	}
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Target returns the current target language code
func (c *Controller) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Snapshot returns the current session view
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:            c.state,
		TargetLanguage:   c.target,
		TargetName:       languages.DisplayName(c.target),
		TargetListed:     languages.IsListed(c.target),
		HasLastUtterance: c.last != nil,
		PendingJobs:      c.pool.Pending(),
		HistoryEnabled:   c.deps.History != nil,
	}
}

// SetTargetLanguage changes the target for utterances captured from now on
func (c *Controller) SetTargetLanguage(code string) error {
	normalized, err := languages.Validate(code)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.target = normalized
	c.mu.Unlock()

	c.logger.Info("Target language changed",
		String("target", normalized),
		String("name", languages.DisplayName(normalized)))
	if !languages.IsListed(normalized) {
		c.logger.Warn("Target language is not in the language table, it will display as Unknown",
			String("target", normalized))
	}
	return nil
}

// Start moves the session from Idle to Listening and starts the capture loop
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateListening {
		return ErrAlreadyListening
	}

	ctx, cancel := context.WithCancel(context.Background())
	prev := c.loopDone
	done := make(chan struct{})

	c.state = StateListening
	c.cancel = cancel
	c.loopDone = done
	c.notices.reset()

	c.logger.Info("Session started", String("target", c.target))
	go c.captureLoop(ctx, prev, done)
	return nil
}

// Stop moves the session back to Idle. It does not wait for the capture loop
// or for utterances already being processed.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateListening {
		c.mu.Unlock()
		return ErrNotListening
	}
	c.cancel()
	c.cancel = nil
	c.state = StateIdle
	c.mu.Unlock()

	c.logger.Info("Session stopped")
	c.deps.Presenter.ShowStatus(StatusIdle)
	return nil
}

// ReprocessLast runs the pipeline again on the most recent utterance. It
// works in either state.
func (c *Controller) ReprocessLast(ctx context.Context) error {
	c.mu.Lock()
	u := c.last
	target := c.target
	c.mu.Unlock()

	if u == nil {
		c.deps.Presenter.Notify(Notice{Title: "Information", Message: NoAudioMessage})
		return ErrNoUtterance
	}

	c.deps.Presenter.ShowStatus(StatusProcessingLast)
	if err := c.pool.Submit(ctx, func() { c.process(c.work, u, target, true) }); err != nil {
		c.deps.Presenter.ShowStatus(ErrorStatus(err))
		return fmt.Errorf("failed to queue reprocessing: %w", err)
	}
	return nil
}

// Shutdown stops listening, waits for the capture loop and drains queued
// work. Work still running when ctx ends is cancelled.
func (c *Controller) Shutdown(ctx context.Context) error {
	if err := c.Stop(); err != nil && !errors.Is(err, ErrNotListening) {
		return err
	}

	c.mu.Lock()
	loopDone := c.loopDone
	c.mu.Unlock()

	if loopDone != nil {
		select {
		case <-loopDone:
		case <-ctx.Done():
			c.stopWork()
			return fmt.Errorf("capture loop did not stop: %w", ctx.Err())
		}
	}

	drained := make(chan struct{})
	go func() {
		c.pool.Close()
		close(drained)
	}()

	select {
	case <-drained:
		c.stopWork()
		return nil
	case <-ctx.Done():
		c.stopWork()
		<-drained
		return fmt.Errorf("pending translations cancelled: %w", ctx.Err())
	}
}

// captureLoop listens until ctx is done. It waits for the loop of a previous
// session so the source is never read by two loops.
func (c *Controller) captureLoop(ctx context.Context, prev <-chan struct{}, done chan struct{}) {
	defer close(done)

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return
		}
	}

	for ctx.Err() == nil {
		c.deps.Presenter.ShowStatus(StatusListening)

		u, err := c.deps.Source.Listen(ctx, c.config.ListenTimeout, c.config.PhraseLimit)
		switch {
		case ctx.Err() != nil:
			return
		case err == nil:
			c.dispatch(ctx, u)
		case errors.Is(err, audio.ErrNoSpeech):
		case errors.Is(err, audio.ErrUnintelligible):
			c.deps.Presenter.ShowStatus(StatusUnintelligible)
		default:
			c.logger.Warn("Listening failed", Error(err))
			c.deps.Presenter.ShowStatus(ErrorStatus(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.config.LoopDelay):
		}
	}
}

// dispatch retains u as the last utterance and queues it for processing
func (c *Controller) dispatch(ctx context.Context, u *audio.Utterance) {
	c.mu.Lock()
	c.last = u
	target := c.target
	c.mu.Unlock()

	c.logger.Debug("Utterance captured",
		String("id", u.ID.String()),
		Duration("duration", u.Duration()))

	c.deps.Presenter.ShowStatus(StatusProcessing)
	if err := c.pool.Submit(ctx, func() { c.process(c.work, u, target, false) }); err != nil {
		c.logger.Warn("Utterance dropped", String("id", u.ID.String()), Error(err))
	}
}

// process runs Transcribe, Detect, Translate and Persist for one utterance.
// Failures end as a status line, never as a returned error.
func (c *Controller) process(ctx context.Context, u *audio.Utterance, target string, reprocessed bool) {
	text, err := c.deps.Transcriber.Transcribe(ctx, u)
	if err != nil {
		if audio.IsBenign(err) {
			c.deps.Presenter.ShowStatus(StatusUnintelligible)
			return
		}
		c.fail(u, "transcription", err)
		return
	}

	source, err := c.deps.Detector.Detect(text)
	if err != nil {
		c.fail(u, "detection", err)
		return
	}

	translated := c.deps.Translator.Translate(ctx, text, source, target)

	result := Result{
		SourceText:     text,
		SourceLang:     source,
		SourceName:     languages.DisplayName(source),
		TranslatedText: translated.Text,
		TargetLang:     target,
		TargetName:     languages.DisplayName(target),
		Method:         translated.Method,
		Reprocessed:    reprocessed,
		CompletedAt:    time.Now(),
	}

	result.RecordID = c.persist(ctx, &sqlite.TranslationRecord{
		Timestamp:      result.CompletedAt,
		SourceText:     text,
		SourceLang:     source,
		TranslatedText: translated.Text,
		TargetLang:     target,
	})

	c.logger.Info("Translation complete",
		String("utterance", u.ID.String()),
		String("source_lang", source),
		String("target_lang", target),
		String("method", translated.Method))

	c.deps.Presenter.ShowTranslation(result)
	c.deps.Presenter.ShowStatus(StatusComplete)
}

func (c *Controller) fail(u *audio.Utterance, stage string, err error) {
	c.logger.Error("Processing failed",
		String("utterance", u.ID.String()),
		String("stage", stage),
		Error(err))
	c.deps.Presenter.ShowStatus(ErrorStatus(err))
}

// persist appends the record and returns its id, or 0 when it was not saved
func (c *Controller) persist(ctx context.Context, record *sqlite.TranslationRecord) int64 {
	if c.deps.History == nil {
		return 0
	}

	id, err := c.deps.History.Append(ctx, record)
	if err != nil {
		notice := persistenceNotice(err)
		c.logger.Error("Failed to save translation",
			String("category", notice.Category),
			Error(err))
		if c.notices.allow(notice.Category) {
			c.deps.Presenter.Notify(notice)
		}
		return 0
	}
	return id
}

// Import logger functions
var (
	String   = logger.String
	Duration = logger.Duration
	Error    = logger.Error
)

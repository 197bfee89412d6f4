package session

import (
	"time"

	"github.com/yegors/co-translate/pkg/logger"
)

// Status strings reported while a session runs
const (
	StatusIdle           = "Idle"
	StatusListening      = "Listening..."
	StatusProcessing     = "Processing..."
	StatusProcessingLast = "Processing last audio..."
	StatusUnintelligible = "Could not understand audio"
	StatusComplete       = "Translation Complete"
)

// ErrorStatus formats err for the status line, keeping it to 100 characters
func ErrorStatus(err error) string {
	msg := []rune(err.Error())
	if len(msg) > 100 {
		msg = append(msg[:97], []rune("...")...)
	}
	return "Error - " + string(msg)
}

// Result is one finished pipeline run
type Result struct {
	SourceText     string    `json:"source_text"`
	SourceLang     string    `json:"source_lang"`
	SourceName     string    `json:"source_name"`
	TranslatedText string    `json:"translated_text"`
	TargetLang     string    `json:"target_lang"`
	TargetName     string    `json:"target_name"`
	Method         string    `json:"method"`
	RecordID       int64     `json:"record_id,omitempty"`
	Reprocessed    bool      `json:"reprocessed"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Notice is a user-facing message that needs acknowledgement
type Notice struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

// Presenter renders session output. Calls may arrive from any goroutine.
type Presenter interface {
	ShowStatus(status string)
	ShowTranslation(result Result)
	Notify(notice Notice)
}

// MultiPresenter fans out to several presenters
type MultiPresenter []Presenter

func (m MultiPresenter) ShowStatus(status string) {
	for _, p := range m {
		p.ShowStatus(status)
	}
}

func (m MultiPresenter) ShowTranslation(result Result) {
	for _, p := range m {
		p.ShowTranslation(result)
	}
}

func (m MultiPresenter) Notify(notice Notice) {
	for _, p := range m {
		p.Notify(notice)
	}
}

// LogPresenter writes session output to the log
type LogPresenter struct {
	logger *logger.Logger
}

// NewLogPresenter creates a presenter backed by log
func NewLogPresenter(log *logger.Logger) *LogPresenter {
	return &LogPresenter{logger: log.Named("presenter")}
}

func (p *LogPresenter) ShowStatus(status string) {
	p.logger.Debug("Status", logger.String("status", status))
}

func (p *LogPresenter) ShowTranslation(result Result) {
	p.logger.Info("Translation",
		logger.String("source", result.SourceText),
		logger.String("source_lang", result.SourceName),
		logger.String("translated", result.TranslatedText),
		logger.String("target_lang", result.TargetName),
		logger.String("method", result.Method))
}

func (p *LogPresenter) Notify(notice Notice) {
	p.logger.Warn(notice.Title, logger.String("message", notice.Message))
}

type nopPresenter struct{}

func (nopPresenter) ShowStatus(string)      {}
func (nopPresenter) ShowTranslation(Result) {}
func (nopPresenter) Notify(Notice)          {}

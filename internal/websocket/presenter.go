package websocket

import (
	"time"

	"github.com/yegors/co-translate/internal/session"
)

// Presenter pushes session output to every connected client
type Presenter struct {
	server *Server
}

// NewPresenter creates a presenter that broadcasts through server
func NewPresenter(server *Server) *Presenter {
	return &Presenter{server: server}
}

func (p *Presenter) ShowStatus(status string) {
	p.server.Broadcast(&Message{
		Type: MessageTypeStatus,
		Data: map[string]any{
			"status":    status,
			"timestamp": time.Now(),
		},
	})
}

func (p *Presenter) ShowTranslation(result session.Result) {
	p.server.Broadcast(&Message{
		Type: MessageTypeTranslation,
		Data: map[string]any{
			"source_text":     result.SourceText,
			"source_lang":     result.SourceLang,
			"source_name":     result.SourceName,
			"translated_text": result.TranslatedText,
			"target_lang":     result.TargetLang,
			"target_name":     result.TargetName,
			"method":          result.Method,
			"record_id":       result.RecordID,
			"reprocessed":     result.Reprocessed,
			"timestamp":       result.CompletedAt,
		},
	})
}

func (p *Presenter) Notify(notice session.Notice) {
	data := map[string]any{
		"title":     notice.Title,
		"message":   notice.Message,
		"timestamp": time.Now(),
	}
	if notice.Category != "" {
		data["category"] = notice.Category
	}
	p.server.Broadcast(&Message{Type: MessageTypeNotice, Data: data})
}

// HistoryCleared tells clients the history was emptied
func (p *Presenter) HistoryCleared(cleared int64) {
	p.server.Broadcast(&Message{
		Type: MessageTypeHistoryCleared,
		Data: map[string]any{
			"cleared":   cleared,
			"timestamp": time.Now(),
		},
	})
}

package session

import (
	"sync"

	"github.com/yegors/co-translate/internal/storage/sqlite"
)

// maxNoticesPerCategory caps persistence notices per category per session
const maxNoticesPerCategory = 2

const noticeTitleDatabase = "Database Error"

// noticeLimiter counts persistence failures per error category
type noticeLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newNoticeLimiter() *noticeLimiter {
	return &noticeLimiter{counts: make(map[string]int)}
}

// allow records one failure in category and reports whether it may be shown
func (l *noticeLimiter) allow(category string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[category]++
	return l.counts[category] <= maxNoticesPerCategory
}

func (l *noticeLimiter) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.counts)
}

// persistenceNotice builds the notice shown for a failed history write
func persistenceNotice(err error) Notice {
	category := sqlite.ErrorCategory(err)

	var msg string
	switch category {
	case sqlite.CategoryReadOnly:
		msg = "Cannot save to history: Database is read-only.\nCheck that the data directory is writable."
	case sqlite.CategorySQL:
		msg = "Database error: " + err.Error()
	default:
		msg = "Failed to save translation to history: " + err.Error()
	}

	return Notice{
		Title:    noticeTitleDatabase,
		Message:  msg,
		Category: category,
	}
}

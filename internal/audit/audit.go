// Package audit records moderation events. The process log line is written
// immediately; persistence and the mod-log notifier run in the background so
// callers answering an interaction are never held up by them.
package audit

import (
	"context"
	"sync"
	"time"

	"warscope-bot/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
)

const deliverTimeout = 15 * time.Second

type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.AuditLog)
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewLogger records moderation events. store may be nil, in which case
// entries only reach the process log and the notifier.
func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, now: time.Now}
}

// SetNotifier must be called before the first Log.
func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	l.logger.Info("audit",
		zap.String("level", level),
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("event", event),
		zap.String("details", details),
	)
	if l.store == nil && l.notify == nil {
		return
	}

	// The interaction context ends with the reply; delivery outlives it.
	deliverCtx := context.WithoutCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(deliverCtx, deliverTimeout)
		defer cancel()
		l.deliver(ctx, entry)
	}()
}

func (l *Logger) deliver(ctx context.Context, entry storage.AuditLog) {
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit persist failed", zap.String("event", entry.Event), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
}

// Wait blocks until pending deliveries finish or ctx is done.
func (l *Logger) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

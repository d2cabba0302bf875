package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"supplyhub/internal/core/id"
	"supplyhub/pkg/logger"
)

// SettingsChannel is notified by the settings service with a store id payload,
// or an empty payload when business-level settings change.
const SettingsChannel = "discount_settings_changed"

// Invalidator drops cached settings.
type Invalidator interface {
	InvalidateStore(ctx context.Context, storeID id.ID) error
	InvalidateAll(ctx context.Context) error
}

// SettingsListener invalidates the discount cache on PostgreSQL NOTIFY.
type SettingsListener struct {
	pool  *pgxpool.Pool
	cache Invalidator

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewSettingsListener creates a listener.
func NewSettingsListener(pool *pgxpool.Pool, cache Invalidator) *SettingsListener {
	return &SettingsListener{pool: pool, cache: cache}
}

// Start begins listening in the background.
func (l *SettingsListener) Start(ctx context.Context) {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "discount settings listener started")
}

// Stop cancels the listener and waits for it to exit.
func (l *SettingsListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "discount settings listener stopped")
}

func (l *SettingsListener) listenLoop() {
	defer l.wg.Done()

	for l.ctx.Err() == nil {
		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.sleep(time.Second)
			continue
		}

		if _, err = conn.Exec(l.ctx, "LISTEN "+SettingsChannel); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "channel", SettingsChannel, "error", err)
			conn.Release()
			l.sleep(time.Second)
			continue
		}

		// Anything cached while we were disconnected may be stale.
		l.handle("")
		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *SettingsListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				continue
			}
			logger.Warn(l.ctx, "LISTEN connection lost", "error", err)
			return
		}

		logger.Debug(l.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)
		l.handle(notification.Payload)
	}
}

// handle invalidates one store, or everything when payload is not a store id.
func (l *SettingsListener) handle(payload string) {
	payload = strings.TrimSpace(payload)
	if storeID, err := id.Parse(payload); err == nil {
		if err := l.cache.InvalidateStore(l.ctx, storeID); err != nil {
			logger.Error(l.ctx, "failed to invalidate store discount", "store_id", payload, "error", err)
		}
		return
	}
	if err := l.cache.InvalidateAll(l.ctx); err != nil {
		logger.Error(l.ctx, "failed to invalidate discount cache", "error", err)
	}
}

func (l *SettingsListener) sleep(d time.Duration) {
	select {
	case <-l.ctx.Done():
	case <-time.After(d):
	}
}

package appstate

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/snapshare/internal/model"
	"github.com/and161185/snapshare/internal/offline"
)

// WithOfflineCache records sync timestamps in the offline cache so they survive restarts.
func WithOfflineCache(c *offline.Cache) Option { return func(s *Store) { s.offline = c } }

// RestoreSyncState loads the last sync time recorded in the offline cache.
func (s *Store) RestoreSyncState(ctx context.Context) {
	if s.offline == nil {
		return
	}
	ts, err := s.offline.LastSync(ctx)
	if err != nil {
		s.log.Warn("read last sync failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.st.lastSync = ts
	s.mu.Unlock()
}

// SyncData pushes the whole local snapshot to the backend in a single attempt.
// Success stores the server timestamp and marks the store online; failure marks it offline.
func (s *Store) SyncData(ctx context.Context) {
	if s.remote == nil {
		return
	}
	s.mu.Lock()
	snap := cloneSnapshot(s.st.Snapshot)
	payload := model.SyncPayload{
		Photos:   snap.Photos,
		Comments: snap.Comments,
		Albums:   snap.Albums,
		Groups:   snap.Groups,
		LastSync: s.st.lastSync,
	}
	s.mu.Unlock()

	ts, err := s.remote.Sync(ctx, payload)
	s.mu.Lock()
	if err != nil {
		s.st.online = false
		s.mu.Unlock()
		s.log.Warn("sync failed; working offline", zap.String("op", "sync"), zap.Error(err))
		return
	}
	s.st.online = true
	s.st.lastSync = ts
	s.mu.Unlock()

	if s.offline != nil {
		if err := s.offline.MarkSynced(ctx, ts); err != nil {
			s.log.Warn("record last sync failed", zap.Error(err))
		}
	}
}

// SyncStatus reports connectivity as observed by the last sync and its server timestamp.
func (s *Store) SyncStatus() (online bool, lastSync time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.online, s.st.lastSync
}

// Notifications returns session notifications, newest first.
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification{}, s.st.notifications...)
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.st.notifications {
		if !v.Read {
			n++
		}
	}
	return n
}

// MarkNotificationRead flags one notification as read.
func (s *Store) MarkNotificationRead(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.notifications {
		if s.st.notifications[i].ID == id {
			s.st.notifications[i].Read = true
			return
		}
	}
}

// ClearNotifications drops all notifications.
func (s *Store) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.notifications = nil
}

package store

import (
	"context"
	"time"

	"fintrack/internal/core"
)

const (
	// NotificationRetention is how long notifications survive a reload.
	NotificationRetention = 7 * 24 * time.Hour
	// MaxNotifications caps the collection; the oldest entries go first.
	MaxNotifications = 100
)

// Notifications owns the notification center, newest first.
type Notifications struct {
	*Collection[core.Notification]
	env env
}

func (s *Notifications) Add(ctx context.Context, n core.Notification) (core.Notification, error) {
	n.ID = s.env.newID()
	n.CreatedAt = s.env.now()
	n.IsRead = false
	if err := n.Validate(); err != nil {
		return core.Notification{}, err
	}
	err := s.mutate(ctx, OpAdd, n.ID, func(items []core.Notification) ([]core.Notification, error) {
		items = append([]core.Notification{n}, items...)
		if len(items) > MaxNotifications {
			items = items[:MaxNotifications]
		}
		return items, nil
	})
	if err != nil {
		return core.Notification{}, err
	}
	return n, nil
}

func (s *Notifications) MarkRead(ctx context.Context, id string) (core.Notification, error) {
	return s.update(ctx, id, func(n core.Notification) (core.Notification, error) {
		n.IsRead = true
		return n, nil
	})
}

func (s *Notifications) MarkAllRead(ctx context.Context) error {
	return s.mutate(ctx, OpUpdate, "", func(items []core.Notification) ([]core.Notification, error) {
		for i := range items {
			items[i].IsRead = true
		}
		return items, nil
	})
}

func (s *Notifications) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

func (s *Notifications) Clear(ctx context.Context) error {
	return s.mutate(ctx, OpClear, "", func([]core.Notification) ([]core.Notification, error) {
		return []core.Notification{}, nil
	})
}

func (s *Notifications) UnreadCount() int {
	n := 0
	for _, item := range s.List() {
		if !item.IsRead {
			n++
		}
	}
	return n
}

func retained(now time.Time) func(core.Notification) bool {
	cutoff := now.Add(-NotificationRetention)
	return func(n core.Notification) bool {
		return !n.CreatedAt.Before(cutoff)
	}
}

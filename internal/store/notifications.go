// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantstore/internal/models"
)

// CreateNotification prepends a notification so the collection stays
// newest-first.
func (s *Store) CreateNotification(ctx context.Context, in models.NewNotification) (*models.Notification, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	kind := in.Kind
	if kind == "" {
		kind = models.NotificationInfo
	}
	n := models.Notification{
		ID:        uuid.NewString(),
		AccountID: in.AccountID,
		Kind:      kind,
		Title:     in.Title,
		Body:      in.Body,
		Link:      in.Link,
		CreatedAt: s.now(),
	}

	err := update(ctx, s, CollectionNotifications, func(ns []models.Notification) ([]models.Notification, error) {
		return append([]models.Notification{n}, ns...), nil
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNotification returns the notification with id, or nil.
func (s *Store) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	return find(load[models.Notification](ctx, s, CollectionNotifications), byNotificationID(id)), nil
}

// ListNotifications returns an account's notifications, newest first.
// unreadOnly drops read ones.
func (s *Store) ListNotifications(ctx context.Context, accountID string, unreadOnly bool) ([]models.Notification, error) {
	return filter(load[models.Notification](ctx, s, CollectionNotifications), func(n *models.Notification) bool {
		return n.AccountID == accountID && (!unreadOnly || !n.Read)
	}), nil
}

// MarkNotificationRead marks a notification read. Marking an already read
// notification keeps its original ReadAt.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	var out *models.Notification
	err := update(ctx, s, CollectionNotifications, func(ns []models.Notification) ([]models.Notification, error) {
		i := index(ns, byNotificationID(id))
		if i < 0 {
			return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		n := &ns[i]
		changed := !n.Read
		if changed {
			now := s.now()
			n.Read = true
			n.ReadAt = &now
		}
		cp := *n
		out = &cp
		if !changed {
			return nil, errNoChange
		}
		return ns, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteNotification removes a notification.
func (s *Store) DeleteNotification(ctx context.Context, id string) (bool, error) {
	return deleteWhere(ctx, s, CollectionNotifications, byNotificationID(id))
}

func byNotificationID(id string) func(*models.Notification) bool {
	return func(n *models.Notification) bool { return n.ID == id }
}

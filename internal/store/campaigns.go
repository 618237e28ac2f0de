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

// CreateCampaign appends a draft campaign.
func (s *Store) CreateCampaign(ctx context.Context, in models.NewCampaign) (*models.Campaign, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	now := s.now()
	c := models.Campaign{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Status:      models.CampaignDraft,
		TemplateID:  in.TemplateID,
		Audience:    in.Audience,
		ScheduledAt: in.ScheduledAt,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ScheduledAt != nil {
		c.Status = models.CampaignScheduled
	}

	err := update(ctx, s, CollectionCampaigns, func(cs []models.Campaign) ([]models.Campaign, error) {
		return append(cs, c), nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCampaign returns the campaign with id, or nil.
func (s *Store) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	return find(load[models.Campaign](ctx, s, CollectionCampaigns), byCampaignID(id)), nil
}

// ListCampaigns returns every campaign in insertion order.
func (s *Store) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	return load[models.Campaign](ctx, s, CollectionCampaigns), nil
}

// UpdateCampaign applies u; counter fields are added to the stored totals.
func (s *Store) UpdateCampaign(ctx context.Context, id string, u models.CampaignUpdate) (*models.Campaign, error) {
	if err := validate(u); err != nil {
		return nil, err
	}

	var out *models.Campaign
	err := update(ctx, s, CollectionCampaigns, func(cs []models.Campaign) ([]models.Campaign, error) {
		i := index(cs, byCampaignID(id))
		if i < 0 {
			return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
		}
		c := &cs[i]
		if u.Name != nil {
			c.Name = *u.Name
		}
		if u.Status != nil {
			c.Status = *u.Status
		}
		if u.ScheduledAt != nil {
			t := *u.ScheduledAt
			c.ScheduledAt = &t
		}
		c.SentCount += u.AddSent
		c.OpenCount += u.AddOpens
		c.ClickCount += u.AddClicks
		c.UpdatedAt = s.now()
		cp := *c
		out = &cp
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCampaign removes a campaign. Deleting a missing campaign reports
// false without error.
func (s *Store) DeleteCampaign(ctx context.Context, id string) (bool, error) {
	return deleteWhere(ctx, s, CollectionCampaigns, byCampaignID(id))
}

func byCampaignID(id string) func(*models.Campaign) bool {
	return func(c *models.Campaign) bool { return c.ID == id }
}

// deleteWhere removes the first matching record and reports whether one
// was removed. Nothing is written when no record matches.
func deleteWhere[T any](ctx context.Context, s *Store, name string, match func(*T) bool) (bool, error) {
	removed := false
	err := update(ctx, s, name, func(items []T) ([]T, error) {
		i := index(items, match)
		if i < 0 {
			return nil, errNoChange
		}
		removed = true
		return append(items[:i], items[i+1:]...), nil
	})
	return removed, err
}

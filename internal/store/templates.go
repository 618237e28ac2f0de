// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package store

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/tomtom215/tenantstore/internal/models"
)

// UpsertEmailTemplate creates the template for in.Slug or replaces its
// content, bumping Version on every update.
func (s *Store) UpsertEmailTemplate(ctx context.Context, in models.EmailTemplateInput) (*models.EmailTemplate, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var out *models.EmailTemplate
	err := update(ctx, s, CollectionEmailTemplates, func(ts []models.EmailTemplate) ([]models.EmailTemplate, error) {
		now := s.now()
		if i := index(ts, byTemplateSlug(in.Slug)); i >= 0 {
			t := &ts[i]
			t.Name = in.Name
			t.Subject = in.Subject
			t.HTMLBody = in.HTMLBody
			t.TextBody = in.TextBody
			t.Variables = slices.Clone(in.Variables)
			t.Version++
			t.UpdatedAt = now
			cp := *t
			out = &cp
			return ts, nil
		}

		t := models.EmailTemplate{
			ID:        uuid.NewString(),
			Slug:      in.Slug,
			Name:      in.Name,
			Subject:   in.Subject,
			HTMLBody:  in.HTMLBody,
			TextBody:  in.TextBody,
			Variables: slices.Clone(in.Variables),
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		out = &t
		return append(ts, t), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetEmailTemplate returns the template with id, or nil.
func (s *Store) GetEmailTemplate(ctx context.Context, id string) (*models.EmailTemplate, error) {
	return find(load[models.EmailTemplate](ctx, s, CollectionEmailTemplates), func(t *models.EmailTemplate) bool {
		return t.ID == id
	}), nil
}

// GetEmailTemplateBySlug returns the template with slug, or nil.
func (s *Store) GetEmailTemplateBySlug(ctx context.Context, slug string) (*models.EmailTemplate, error) {
	return find(load[models.EmailTemplate](ctx, s, CollectionEmailTemplates), byTemplateSlug(slug)), nil
}

// ListEmailTemplates returns every template in insertion order.
func (s *Store) ListEmailTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	return load[models.EmailTemplate](ctx, s, CollectionEmailTemplates), nil
}

// DeleteEmailTemplate removes the template with id.
func (s *Store) DeleteEmailTemplate(ctx context.Context, id string) (bool, error) {
	return deleteWhere(ctx, s, CollectionEmailTemplates, func(t *models.EmailTemplate) bool {
		return t.ID == id
	})
}

func byTemplateSlug(slug string) func(*models.EmailTemplate) bool {
	return func(t *models.EmailTemplate) bool { return t.Slug == slug }
}

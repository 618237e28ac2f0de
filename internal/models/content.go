// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package models

import "time"

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// Campaign is an outbound marketing campaign.
type Campaign struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      CampaignStatus `json:"status"`
	TemplateID  string         `json:"template_id,omitempty"`
	Audience    string         `json:"audience,omitempty"`
	SentCount   int64          `json:"sent_count"`
	OpenCount   int64          `json:"open_count"`
	ClickCount  int64          `json:"click_count"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewCampaign is the input to CreateCampaign.
type NewCampaign struct {
	Name        string     `json:"name" validate:"required,max=256"`
	TemplateID  string     `json:"template_id"`
	Audience    string     `json:"audience" validate:"max=256"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	CreatedBy   string     `json:"created_by"`
}

// CampaignUpdate carries optional changes; counters are added, not set.
type CampaignUpdate struct {
	Name        *string         `json:"name" validate:"omitempty,max=256"`
	Status      *CampaignStatus `json:"status" validate:"omitempty,oneof=draft scheduled active paused completed"`
	ScheduledAt *time.Time      `json:"scheduled_at"`
	AddSent     int64           `json:"add_sent" validate:"min=0"`
	AddOpens    int64           `json:"add_opens" validate:"min=0"`
	AddClicks   int64           `json:"add_clicks" validate:"min=0"`
}

// NotificationKind is the severity of a notification.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

// Notification is an in-app message. The collection is kept newest-first.
type Notification struct {
	ID        string           `json:"id"`
	AccountID string           `json:"account_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body,omitempty"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification is the input to CreateNotification.
type NewNotification struct {
	AccountID string           `json:"account_id" validate:"required"`
	Kind      NotificationKind `json:"kind" validate:"omitempty,oneof=info success warning error"`
	Title     string           `json:"title" validate:"required,max=256"`
	Body      string           `json:"body" validate:"max=4096"`
	Link      string           `json:"link" validate:"omitempty,max=2048"`
}

// EmailTemplate is a named, versioned email body. Slug is the natural key.
type EmailTemplate struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	HTMLBody  string    `json:"html_body"`
	TextBody  string    `json:"text_body,omitempty"`
	Variables []string  `json:"variables,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmailTemplateInput is the input to UpsertEmailTemplate.
type EmailTemplateInput struct {
	Slug      string   `json:"slug" validate:"required,slug,max=128"`
	Name      string   `json:"name" validate:"required,max=256"`
	Subject   string   `json:"subject" validate:"required,max=512"`
	HTMLBody  string   `json:"html_body" validate:"required"`
	TextBody  string   `json:"text_body"`
	Variables []string `json:"variables"`
}

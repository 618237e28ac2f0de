// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package models

// Collections is a full copy of every non-backup collection.
type Collections struct {
	Users          []Account       `json:"users"`
	Transactions   []Transaction   `json:"transactions"`
	Usage          []UsageEvent    `json:"usage"`
	Campaigns      []Campaign      `json:"campaigns"`
	Notifications  []Notification  `json:"notifications"`
	APIKeys        []APIKey        `json:"api_keys"`
	FeatureFlags   []FeatureFlag   `json:"feature_flags"`
	EmailTemplates []EmailTemplate `json:"email_templates"`
}

// RecordCount returns the total number of records across collections.
func (c *Collections) RecordCount() int {
	return len(c.Users) + len(c.Transactions) + len(c.Usage) + len(c.Campaigns) +
		len(c.Notifications) + len(c.APIKeys) + len(c.FeatureFlags) + len(c.EmailTemplates)
}

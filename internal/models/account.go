// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

// Package models defines the records persisted in each collection.
//
// Every record carries a random UUID assigned at creation and never reused.
// Optional timestamps are pointers so they serialize as absent.
package models

import "time"

// Role is an account's tier.
type Role string

const (
	RoleBase     Role = "base"
	RoleElevated Role = "elevated"
	RoleAdmin    Role = "admin"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
)

// Account is a tenant user. ExternalID is the natural key supplied by the
// identity layer. Credits never drop below zero.
type Account struct {
	ID          string        `json:"id"`
	ExternalID  string        `json:"external_id"`
	Email       string        `json:"email,omitempty"`
	Name        string        `json:"name,omitempty"`
	Role        Role          `json:"role"`
	Status      AccountStatus `json:"status"`
	Credits     int64         `json:"credits"`
	UsageCount  int64         `json:"usage_count"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	LastLoginAt *time.Time    `json:"last_login_at,omitempty"`
	LoginCount  int64         `json:"login_count"`
}

// NewAccount is the input to CreateAccount.
type NewAccount struct {
	ExternalID string `json:"external_id" validate:"required,max=256"`
	Email      string `json:"email" validate:"omitempty,email"`
	Name       string `json:"name" validate:"max=256"`
	Role       Role   `json:"role" validate:"omitempty,oneof=base elevated admin"`
	Credits    int64  `json:"credits" validate:"min=0"`
}

// AccountUpdate carries optional changes; nil fields are left untouched.
type AccountUpdate struct {
	Email       *string        `json:"email" validate:"omitempty,email"`
	Name        *string        `json:"name" validate:"omitempty,max=256"`
	Role        *Role          `json:"role" validate:"omitempty,oneof=base elevated admin"`
	Status      *AccountStatus `json:"status" validate:"omitempty,oneof=active suspended banned"`
	Credits     *int64         `json:"credits" validate:"omitempty,min=0"`
	LastLoginAt *time.Time     `json:"last_login_at"`
}

// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tomtom215/tenantstore/internal/audit"
	"github.com/tomtom215/tenantstore/internal/models"
	"github.com/tomtom215/tenantstore/internal/store"
)

func newFlagCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flag",
		Short: "Manage feature flags",
	}
	cmd.AddCommand(
		newFlagListCmd(c),
		newFlagSetCmd(c),
		newFlagDeleteCmd(c),
		newFlagEvalCmd(c),
	)
	return cmd
}

func newFlagListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List feature flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags, err := c.app.store.ListFeatureFlags(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tENABLED\tROLLOUT\tALLOW\tDESCRIPTION")
			for i := range flags {
				f := &flags[i]
				fmt.Fprintf(w, "%s\t%t\t%d%%\t%s\t%s\n",
					f.Key, f.Enabled, f.Rollout, strings.Join(f.AllowList, ","), f.Description)
			}
			return w.Flush()
		},
	}
}

func newFlagSetCmd(c *cli) *cobra.Command {
	var in models.FeatureFlagInput
	var actor string

	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Create or update a feature flag",
		Long: "Create or update a feature flag. Options that are not given keep " +
			"their current value when the flag already exists.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in.Key = args[0]

			existing, err := c.app.store.GetFeatureFlag(ctx, in.Key)
			if err != nil {
				return err
			}
			if existing != nil {
				flags := cmd.Flags()
				if !flags.Changed("enabled") {
					in.Enabled = existing.Enabled
				}
				if !flags.Changed("rollout") {
					in.Rollout = existing.Rollout
				}
				if !flags.Changed("allow") {
					in.AllowList = existing.AllowList
				}
				if !flags.Changed("description") {
					in.Description = existing.Description
				}
			}

			flag, err := c.app.store.UpsertFeatureFlag(ctx, in)
			outcome := audit.OutcomeSuccess
			if err != nil {
				outcome = audit.OutcomeFailure
			}
			c.app.audit.LogAdminAction(ctx, audit.EventTypeFlagChanged, audit.OperatorActor(actor),
				&audit.Target{ID: in.Key, Type: "feature_flag"}, outcome, "Feature flag set",
				map[string]interface{}{"enabled": in.Enabled, "rollout": in.Rollout})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), flag)
		},
	}
	cmd.Flags().BoolVar(&in.Enabled, "enabled", false, "turn the flag on")
	cmd.Flags().IntVar(&in.Rollout, "rollout", 0, "percentage of identities enabled (0-100)")
	cmd.Flags().StringSliceVar(&in.AllowList, "allow", nil, "identities always enabled")
	cmd.Flags().StringVar(&in.Description, "description", "", "what the flag gates")
	cmd.Flags().StringVar(&actor, "actor", "cli", "actor recorded in the audit trail")
	return cmd
}

func newFlagDeleteCmd(c *cli) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a feature flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deleted, err := c.app.store.DeleteFeatureFlag(ctx, args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("feature flag %q not found", args[0])
			}
			c.app.audit.LogAdminAction(ctx, audit.EventTypeFlagDeleted, audit.OperatorActor(actor),
				&audit.Target{ID: args[0], Type: "feature_flag"}, audit.OutcomeSuccess, "Feature flag deleted", nil)
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "cli", "actor recorded in the audit trail")
	return cmd
}

func newFlagEvalCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <key> <identity>",
		Short: "Evaluate a feature flag for one identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, identity := args[0], args[1]
			flag, err := c.app.store.GetFeatureFlag(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s enabled=%t bucket=%d\n",
				key, identity, store.Evaluate(flag, identity), store.Bucket(key, identity))
			return nil
		},
	}
}

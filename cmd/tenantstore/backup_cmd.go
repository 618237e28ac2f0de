// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tomtom215/tenantstore/internal/backup"
)

func newBackupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, restore and delete backups",
	}
	cmd.AddCommand(
		newBackupCreateCmd(c),
		newBackupListCmd(c),
		newBackupRestoreCmd(c),
		newBackupDeleteCmd(c),
		newBackupVerifyCmd(c),
		newBackupReconcileCmd(c),
		newBackupStatsCmd(c),
	)
	return cmd
}

func newBackupCreateCmd(c *cli) *cobra.Command {
	var opts backup.CreateOptions
	var kind string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot every collection into a new backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Kind = backup.Kind(kind)
			b, err := c.app.backups.Create(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), b)
		},
	}
	cmd.Flags().StringVar(&opts.Label, "label", "", "human-readable label")
	cmd.Flags().StringVar(&kind, "kind", string(backup.KindManual), "manual, automatic or pre_restore")
	cmd.Flags().StringVar(&opts.CreatedBy, "created-by", "cli", "actor recorded in the audit trail")
	return cmd
}

func newBackupListCmd(c *cli) *cobra.Command {
	var opts backup.ListOptions
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind != "" {
				k := backup.Kind(kind)
				if !k.Valid() {
					return fmt.Errorf("unknown backup kind %q", kind)
				}
				opts.Kind = &k
			}
			backups, err := c.app.backups.List(cmd.Context(), opts)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tCREATED\tRECORDS\tSTORED\tLABEL")
			for i := range backups {
				b := &backups[i]
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					b.ID, b.Kind, b.CreatedAt.Format(time.RFC3339), b.RecordCount, b.StoredBytes, b.Label)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list backups of this kind")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of backups to list (0 = all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of backups to skip")
	return cmd
}

func newBackupRestoreCmd(c *cli) *cobra.Command {
	var opts backup.RestoreOptions

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace every collection with the contents of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.backups.Restore(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&opts.CreatePreRestoreBackup, "pre-restore-backup", true, "snapshot the current state first")
	cmd.Flags().StringVar(&opts.RestoredBy, "restored-by", "cli", "actor recorded in the audit trail")
	return cmd
}

func newBackupDeleteCmd(c *cli) *cobra.Command {
	var deletedBy string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.backups.Delete(cmd.Context(), args[0], deletedBy); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&deletedBy, "deleted-by", "cli", "actor recorded in the audit trail")
	return cmd
}

func newBackupVerifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Check a backup's checksum and payload without restoring it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.backups.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("backup %s failed verification", args[0])
			}
			return nil
		},
	}
}

func newBackupReconcileCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Remove orphan payloads and index entries without payloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := c.app.backups.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newBackupStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the backup index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := c.app.backups.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

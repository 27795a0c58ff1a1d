package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"cms_mirror/internal/domain"
	"cms_mirror/internal/service"
)

var reconcileKind string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one full reconciliation and print per-kind stats",
	RunE:  runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileKind, "kind", "", "reconcile a single kind (story, place, initiative, tag)")
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var kind domain.Kind
	if reconcileKind != "" {
		k, err := domain.ParseKind(reconcileKind)
		if err != nil {
			return err
		}
		kind = k
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Sync.Timeout)
	defer cancel()

	var report service.Report
	if kind != "" {
		report, err = a.reconciler.RunKind(ctx, kind)
	} else {
		report, err = a.reconciler.Run(ctx)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil {
		return encErr
	}
	return err
}

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/pkg/timefmt"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List records awaiting an admin decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListPending(context.Background())
		if err != nil {
			return err
		}
		renderPending(cmd.OutOrStdout(), list)
		return nil
	},
}

func renderPending(w io.Writer, list []*model.PendingNotification) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no pending records")
		return
	}
	for _, p := range list {
		line := fmt.Sprintf("%-6d %-20s %-10s %s  %s %s",
			p.ID, p.TargetEntityKind, p.Role, p.Description,
			timefmt.FormatDate(p.Date), timefmt.FormatTime(p.Time))
		if p.Remark != nil {
			line += "  remark: " + *p.Remark
		}
		fmt.Fprintln(w, line)
	}
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbmc/portal-api/internal/poller"
	"github.com/kbmc/portal-api/pkg/timefmt"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll notifications for a role and print them on every change",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		all, _ := cmd.Flags().GetBool("all")
		if role == "" {
			return fmt.Errorf("--role is required")
		}

		session := poller.NewSession(newClient(), poller.Config{
			Interval:      cfg.Polling.Interval,
			FetchTimeout:  cfg.Polling.RequestTimeout,
			PageSize:      cfg.Polling.PageSize,
			DefaultAvatar: cfg.Polling.DefaultAvatar,
		}, newLogger(), nil)
		session.SetShowAll(all)

		out := cmd.OutOrStdout()
		session.OnUpdate = func(v poller.View) { render(out, v, time.Now()) }

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		session.Start(role)
		<-ctx.Done()
		session.Stop()
		session.Wait()
		return nil
	},
}

func render(w io.Writer, v poller.View, now time.Time) {
	fmt.Fprintf(w, "\n[%s] %s: %d unread\n", now.Format(time.Kitchen), v.Role, v.Unread)
	for _, n := range v.Visible {
		marker := "*"
		if n.Readed.IsRead() {
			marker = " "
		}
		avatar := ""
		if n.Avatar != nil {
			avatar = *n.Avatar
		}
		fmt.Fprintf(w, "%s %-6d %-9s %s (%s) %s\n",
			marker, n.ID, n.Heading, n.Description, timefmt.Relative(n.CreatedAt, now), avatar)
	}
	if hidden := len(v.Notifications) - len(v.Visible); hidden > 0 {
		fmt.Fprintf(w, "  ... %d more (use --all)\n", hidden)
	}
}

func init() {
	watchCmd.Flags().String("role", os.Getenv("PORTAL_ROLE"), "role to watch")
	watchCmd.Flags().Bool("all", false, "show every notification instead of the newest page")
	rootCmd.AddCommand(watchCmd)
}

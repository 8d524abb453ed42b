package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Discover the addressbook and create the sync directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := c.syncer(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			path, err := s.Init(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "addressbook: %s\n", c.cfg.URL(path))
			fmt.Fprintf(out, "sync dir:    %s\n", c.cfg.SyncDir)
			return nil
		},
	}
}

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Download every contact and rebuild the sync cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := c.syncer(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			rep, err := s.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "synced %d contacts into %s (%d cached, %d skipped)\n",
				rep.Remote, c.cfg.SyncDir, rep.Cached, len(rep.Skipped))
			for _, sk := range rep.Skipped {
				fmt.Fprintf(out, "  skipped %s: %s\n", sk.Href, sk.Reason)
			}
			return nil
		},
	}
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local changes since the last sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := c.syncer(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := s.Status()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if st.NeverSynced {
				fmt.Fprintln(out, "never synced")
			}
			if len(st.Corrupt) > 0 {
				fmt.Fprintf(out, "%d unreadable cache lines ignored\n", len(st.Corrupt))
			}
			label := func(name string) string {
				if fn := s.DisplayName(name); fn != "" {
					return name + " (" + fn + ")"
				}
				return name
			}
			for _, n := range st.New {
				fmt.Fprintf(out, "new:      %s\n", label(n))
			}
			for _, n := range st.Modified {
				fmt.Fprintf(out, "modified: %s\n", label(n))
			}
			for _, n := range st.Missing {
				fmt.Fprintf(out, "missing:  %s\n", n)
			}
			if !st.NeverSynced && st.Clean() {
				fmt.Fprintln(out, "up to date")
			}
			return nil
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := c.syncer(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := s.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  remote=%d local=%d cached=%d skipped=%d  %s\n",
					r.StartedAt.Local().Format(time.DateTime), r.ID,
					r.RemoteCards, r.LocalCards, r.CachedCards, len(r.Skipped),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show, 0 for all")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yegors/co-translate/internal/audio"
	"github.com/yegors/co-translate/internal/languages"
	"github.com/yegors/co-translate/internal/storage/sqlite"
)

const previewLength = 30

var errHistoryDisabled = errors.New("history is disabled or no writable data directory was found")

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		offset int
		full   bool
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear translation history",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List translations, newest first",
		Long: `Lists stored translations, newest first.

Examples:
  co-translate history list
  co-translate history list --limit 5
  co-translate history list --full`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer store.Close()

			var records []*sqlite.TranslationRecord
			if limit > 0 {
				records, err = store.ListPage(context.Background(), limit, offset)
			} else {
				records, err = store.ListAll(context.Background())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No translations yet.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tSOURCE\tFROM\tTRANSLATION\tTO")
			for _, r := range records {
				source, translated := r.SourceText, r.TranslatedText
				if !full {
					source = sqlite.Preview(source, previewLength)
					translated = sqlite.Preview(translated, previewLength)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					r.ID,
					r.Timestamp.Format(sqlite.TimestampLayout),
					source,
					languages.DisplayName(r.SourceLang),
					translated,
					languages.DisplayName(r.TargetLang))
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records (0 lists all)")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")
	listCmd.Flags().BoolVar(&full, "full", false, "Do not shorten long texts")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored translation",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer store.Close()

			cleared, err := store.ClearAll(context.Background())
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			if cleared == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No history exists yet to clear")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Translation history cleared successfully (%d records)\n", cleared)
			return nil
		},
	}

	historyCmd.AddCommand(listCmd, clearCmd)
	return historyCmd
}

func newLanguagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List selectable target languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, l := range languages.Supported() {
				marker := ""
				if l.Code == a.cfg.Translation.DefaultTarget {
					marker = "(default)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Code, l.Name, marker)
			}
			return tw.Flush()
		},
	}
}

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := audio.CaptureDevices()
			if err != nil {
				return err
			}
			for _, name := range names {
				marker := ""
				if name == a.cfg.Capture.Device {
					marker = " (configured)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", name, marker)
			}
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dupmap/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect and export duplicate reports",
	}
	reportCmd.AddCommand(newReportShowCommand(ctx))
	reportCmd.AddCommand(newReportExportCommand(ctx))
	return reportCmd
}

func newReportShowCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		clusters   bool
	)

	cmd := &cobra.Command{
		Use:   "show REPORT",
		Short: "Print the contents of a report database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clusters {
				return showClusters(cmd, ctx, args[0], jsonOutput)
			}
			cfg, logger, err := ctx.runtime()
			if err != nil {
				return err
			}
			store, err := report.OpenMatchStore(cmd.Context(), args[0], cfg.BusyTimeout(), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			var records []report.Record
			for record, err := range store.Duplicates(cmd.Context()) {
				if err != nil {
					return err
				}
				records = append(records, record)
			}
			if jsonOutput {
				if records == nil {
					records = []report.Record{}
				}
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No duplicates recorded")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{record.Filename, record.LocalFile, record.MappedFile})
			}
			fmt.Fprintln(out, renderTable("", []string{"Name", "Local file", "Catalogued copy"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&clusters, "clusters", false, "REPORT is a cluster report written by dups find")
	return cmd
}

type clusterJSON struct {
	Name      string   `json:"name"`
	Size      int64    `json:"size"`
	Hash      string   `json:"hash"`
	Instances []string `json:"instances"`
}

func showClusters(cmd *cobra.Command, ctx *commandContext, path string, jsonOutput bool) error {
	cfg, logger, err := ctx.runtime()
	if err != nil {
		return err
	}
	store, err := report.OpenClusterStore(cmd.Context(), path, cfg.BusyTimeout(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	stored, err := store.Clusters(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		payload := make([]clusterJSON, 0, len(stored))
		for _, cluster := range stored {
			entry := clusterJSON{Name: cluster.Name, Size: cluster.Size, Hash: cluster.Hash}
			for _, instance := range cluster.Instances {
				entry.Instances = append(entry.Instances, instance.FullPath())
			}
			payload = append(payload, entry)
		}
		return writeJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	if len(stored) == 0 {
		fmt.Fprintln(out, "No clusters recorded")
		return nil
	}
	rows := make([][]string, 0, len(stored))
	for _, cluster := range stored {
		instances := make([]string, 0, len(cluster.Instances))
		for _, instance := range cluster.Instances {
			instances = append(instances, instance.FullPath())
		}
		rows = append(rows, []string{
			cluster.Name,
			formatCount(cluster.Size),
			cluster.Hash,
			strconv.Itoa(len(instances)),
			strings.Join(instances, "\n"),
		})
	}
	fmt.Fprintln(out, renderTable("",
		[]string{"Name", "Size", "Hash", "Copies", "Locations"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func newReportExportCommand(ctx *commandContext) *cobra.Command {
	var (
		format string
		output string
		title  string
	)

	cmd := &cobra.Command{
		Use:   "export REPORT",
		Short: "Export a match report as CSV or HTML",
		Long: `Export a match report. CSV writes one row per local file followed by its
catalogued copies ("-" writes to stdout). HTML writes index.html and
styles.css into the --output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "csv" && format != "html" {
				return fmt.Errorf("unsupported format %q (expected csv or html)", format)
			}
			if strings.TrimSpace(output) == "" {
				return errors.New("--output is required")
			}
			cfg, logger, err := ctx.runtime()
			if err != nil {
				return err
			}
			store, err := report.OpenMatchStore(cmd.Context(), args[0], cfg.BusyTimeout(), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			groups, err := report.GroupByLocal(store.Duplicates(cmd.Context()))
			if err != nil {
				return err
			}

			switch format {
			case "html":
				if title == "" {
					title = "Duplicates in " + filepath.Base(args[0])
				}
				if err := report.WriteHTML(output, title, groups); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s groups to %s\n", formatCount(len(groups)), filepath.Join(output, "index.html"))
				return nil
			default:
				if output == "-" {
					return report.WriteCSV(cmd.OutOrStdout(), groups)
				}
				return writeCSVFile(output, groups)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (csv) or directory (html)")
	cmd.Flags().StringVar(&title, "title", "", "HTML page title")
	return cmd
}

func writeCSVFile(path string, groups []report.Group) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv export: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return report.WriteCSV(file, groups)
}

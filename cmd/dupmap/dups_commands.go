package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dupmap/internal/dedup"
	"dupmap/internal/locate"
	"dupmap/internal/match"
	"dupmap/internal/preflight"
	"dupmap/internal/report"
)

func newDupsCommand(ctx *commandContext) *cobra.Command {
	dupsCmd := &cobra.Command{
		Use:   "dups",
		Short: "Find duplicate files",
	}
	dupsCmd.AddCommand(newDupsLocateCommand(ctx))
	dupsCmd.AddCommand(newDupsFindCommand(ctx))
	dupsCmd.AddCommand(newDupsPruneCommand(ctx))
	return dupsCmd
}

func newDupsLocateCommand(ctx *commandContext) *cobra.Command {
	var (
		mapFiles        []string
		outputFile      string
		suppressionFile string
	)

	cmd := &cobra.Command{
		Use:   "locate ROOT",
		Short: "Find catalogued copies of every file beneath ROOT",
		Long: `Walk ROOT and compare each file against the given catalogues by name, size,
and content hash. Matches are logged and, with --output-file, written to a
match report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(mapFiles) == 0 {
				return errors.New("at least one --mapfile is required")
			}
			cfg, logger, err := ctx.runtime()
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve root: %w", err)
			}

			targets := preflight.Targets{ScanRoot: root, Catalogues: mapFiles}
			if outputFile != "" {
				targets.Outputs = []string{outputFile}
			}
			if err := preflight.Err(preflight.RunAll(cmd.Context(), targets)); err != nil {
				return err
			}

			walker, err := ctx.walker(cfg, suppressionFile, logger)
			if err != nil {
				return err
			}
			hasher, err := ctx.hasher(cfg)
			if err != nil {
				return err
			}
			stores, closeStores, err := openCatalogues(cmd, cfg, logger, mapFiles)
			if err != nil {
				return err
			}
			defer closeStores()

			catalogues := make([]match.Catalogue, 0, len(stores))
			for _, store := range stores {
				catalogues = append(catalogues, store)
			}
			matcher := match.NewMatcher(hasher, match.Options{
				ExcludeSelf: cfg.Locate.ExcludeSelf,
				Logger:      logger,
			}, catalogues...)

			var writer locate.MatchWriter
			if outputFile != "" {
				reportStore, err := report.CreateMatchStore(cmd.Context(), outputFile, cfg.BusyTimeout(), logger)
				if err != nil {
					return err
				}
				defer reportStore.Close()
				writer = reportStore
			}

			run := locate.NewWalkThenMatch(walker, matcher, writer, cfg.ProgressInterval(), logger)
			summary, err := run.Run(cmd.Context(), root)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Probed:        %s\n", formatCount(summary.Probed))
			fmt.Fprintf(out, "With matches:  %s\n", formatCount(summary.WithMatches))
			fmt.Fprintf(out, "Matches:       %s\n", formatCount(summary.Matches))
			if summary.Failed > 0 {
				fmt.Fprintf(out, "Failed:        %s\n", formatCount(summary.Failed))
			}
			if outputFile != "" {
				fmt.Fprintf(out, "Report:        %s\n", outputFile)
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&mapFiles, "mapfile", nil, "Catalogue to compare against (repeatable)")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "Write matches to this report database")
	cmd.Flags().StringVar(&suppressionFile, "suppression-file", "", "JSON file listing directories and patterns to skip")
	return cmd
}

func newDupsFindCommand(ctx *commandContext) *cobra.Command {
	var (
		outputFile string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "find CATALOG...",
		Short: "Find duplicate clusters inside catalogues",
		Long: `Group each catalogue's records by name and size, confirm candidates by
content hash, and print every cluster of identical files. Hashes computed along
the way are cached in the catalogue.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.runtime()
			if err != nil {
				return err
			}
			targets := preflight.Targets{Catalogues: args}
			if outputFile != "" {
				targets.Outputs = []string{outputFile}
			}
			if err := preflight.Err(preflight.RunAll(cmd.Context(), targets)); err != nil {
				return err
			}

			hasher, err := ctx.hasher(cfg)
			if err != nil {
				return err
			}
			stores, closeStores, err := openCatalogues(cmd, cfg, logger, args)
			if err != nil {
				return err
			}
			defer closeStores()

			var writer locate.ClusterWriter
			if outputFile != "" {
				clusterStore, err := report.CreateClusterStore(cmd.Context(), outputFile, cfg.BusyTimeout(), logger)
				if err != nil {
					return err
				}
				defer clusterStore.Close()
				writer = clusterStore
			}

			dedupStores := make([]dedup.Store, 0, len(stores))
			for _, store := range stores {
				dedupStores = append(dedupStores, store)
			}
			finder := dedup.NewFinder(hasher, cfg.Dedup.Workers, logger)
			sets, stats, err := locate.NewCatalogueDedup(finder, writer, logger).Run(cmd.Context(), dedupStores...)

			out := cmd.OutOrStdout()
			if !quiet {
				printDuplicateSets(out, sets)
			}
			fmt.Fprintf(out, "Groups examined: %s\n", formatCount(stats.Groups))
			fmt.Fprintf(out, "Clusters:        %s\n", formatCount(stats.Duplicates))
			fmt.Fprintf(out, "Instances:       %s\n", formatCount(stats.Instances))
			fmt.Fprintf(out, "Hashes cached:   %s\n", formatCount(stats.HashesAdded))
			if stats.Unresolvable > 0 {
				fmt.Fprintf(out, "Unresolvable:    %s\n", formatCount(stats.Unresolvable))
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "Write clusters to this report database")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")
	return cmd
}

func printDuplicateSets(out io.Writer, sets []dedup.DuplicateSet) {
	heading := headingColor(out)
	for _, set := range sets {
		hash := set.Hash
		if hash == "" {
			hash = "name+size only"
		}
		heading.Fprintf(out, "%s (%s, %s)\n", set.Name, formatBytes(set.Size), hash)
		for _, member := range set.Members {
			fmt.Fprintf(out, "  %s\n", member.FullPath())
		}
	}
}

func newDupsPruneCommand(ctx *commandContext) *cobra.Command {
	var clusters bool

	cmd := &cobra.Command{
		Use:   "prune REPORT",
		Short: "Drop report entries whose files no longer exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.runtime()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if clusters {
				store, err := report.OpenClusterStore(cmd.Context(), args[0], cfg.BusyTimeout(), logger)
				if err != nil {
					return err
				}
				defer store.Close()
				removed, err := pruneClusters(cmd, store)
				fmt.Fprintf(out, "Removed %s missing instances\n", formatCount(removed))
				return err
			}

			store, err := report.OpenMatchStore(cmd.Context(), args[0], cfg.BusyTimeout(), logger)
			if err != nil {
				return err
			}
			defer store.Close()
			pruned, err := store.Prune(cmd.Context(), fileExists)
			for _, path := range pruned {
				fmt.Fprintf(out, "pruned %s\n", path)
			}
			fmt.Fprintf(out, "Pruned %s local files\n", formatCount(len(pruned)))
			return err
		},
	}

	cmd.Flags().BoolVar(&clusters, "clusters", false, "REPORT is a cluster report written by dups find")
	return cmd
}

func pruneClusters(cmd *cobra.Command, store *report.ClusterStore) (int, error) {
	stored, err := store.Clusters(cmd.Context())
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, cluster := range stored {
		for _, instance := range cluster.Instances {
			if fileExists(instance.FullPath()) {
				continue
			}
			ok, err := store.RemoveInstance(cmd.Context(), instance.Source, instance.Path, instance.Name)
			if err != nil {
				return removed, err
			}
			if ok {
				removed++
			}
		}
	}
	return removed, nil
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

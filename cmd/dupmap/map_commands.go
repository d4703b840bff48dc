package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dupmap/internal/catalog"
	"dupmap/internal/logging"
	"dupmap/internal/preflight"
	"dupmap/internal/scan"
)

func newMapCommand(ctx *commandContext) *cobra.Command {
	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "Build and inspect catalogues of directory trees",
	}
	mapCmd.AddCommand(newMapCreateCommand(ctx))
	mapCmd.AddCommand(newMapInfoCommand(ctx))
	return mapCmd
}

func newMapCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		appendMode      bool
		suppressionFile string
	)

	cmd := &cobra.Command{
		Use:   "create ROOT CATALOG",
		Short: "Catalogue every file beneath ROOT",
		Long: `Walk ROOT and record the name, size, and location of every non-empty file
in CATALOG. Without --append a missing catalogue is created; with --append the
catalogue must already exist. Files already catalogued from ROOT are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.runtime()
			if err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve root: %w", err)
			}
			catalogPath, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolve catalogue path: %w", err)
			}

			checks := preflight.RunAll(cmd.Context(), preflight.Targets{
				ScanRoot: root,
				Outputs:  []string{catalogPath},
			})
			if err := preflight.Err(checks); err != nil {
				return err
			}

			walker, err := ctx.walker(cfg, suppressionFile, logger)
			if err != nil {
				return err
			}

			lock, err := catalog.AcquireWriteLock(catalogPath)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			opts := catalog.OptionsFromConfig(cfg, logger)
			var store *catalog.Store
			if appendMode {
				store, err = catalog.Open(cmd.Context(), catalogPath, opts)
			} else {
				store, err = catalog.OpenOrCreate(cmd.Context(), catalogPath, opts)
			}
			if err != nil {
				if errors.Is(err, catalog.ErrStoreNotFound) {
					return fmt.Errorf("%w (omit --append to create it)", err)
				}
				return err
			}
			defer store.Close()

			logger.Info("mapping started",
				logging.String(logging.FieldPath, root),
				logging.String(logging.FieldCatalog, catalogPath),
			)
			mapper := scan.NewMapper(walker, store, cfg.Catalog.WriteBatchSize, logger)
			stats, runErr := mapper.Run(cmd.Context(), root)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Catalogue: %s\n", catalogPath)
			fmt.Fprintf(out, "Existing:  %s\n", formatCount(stats.Existing))
			fmt.Fprintf(out, "Added:     %s\n", formatCount(stats.Added))
			fmt.Fprintf(out, "Skipped:   %s\n", formatCount(stats.Skipped))
			fmt.Fprintf(out, "Empty:     %s\n", formatCount(stats.Empty))
			return runErr
		},
	}

	cmd.Flags().BoolVar(&appendMode, "append", false, "Add to an existing catalogue instead of creating one")
	cmd.Flags().StringVar(&suppressionFile, "suppression-file", "", "JSON file listing directories and patterns to skip")
	return cmd
}

func newMapInfoCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info CATALOG...",
		Short: "Summarize catalogues",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.runtime()
			if err != nil {
				return err
			}
			opts := catalog.OptionsFromConfig(cfg, logger)
			opts.ReadOnly = true

			infos := make([]catalog.Info, 0, len(args))
			for _, path := range args {
				store, err := catalog.Open(cmd.Context(), path, opts)
				if err != nil {
					return fmt.Errorf("open catalogue %s: %w", path, err)
				}
				info, err := store.Info(cmd.Context())
				_ = store.Close()
				if err != nil {
					return fmt.Errorf("inspect catalogue %s: %w", path, err)
				}
				infos = append(infos, info)
			}

			if jsonOutput {
				return writeJSON(cmd, infos)
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{
					info.Path,
					strconv.Itoa(info.Version),
					formatCount(info.Records),
					formatCount(info.Hashed),
					sourcesLabel(info.Sources),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("",
				[]string{"Catalogue", "Schema", "Records", "Hashed", "Sources"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func sourcesLabel(sources []string) string {
	if len(sources) == 0 {
		return "-"
	}
	return strings.Join(sources, "\n")
}

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dupmap/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configExists {
				fmt.Fprintln(out, "Config file does not exist; showing defaults")
			}
			fmt.Fprintln(out, renderTable("", []string{"Setting", "Value"}, configRows(cfg), nil))
			return nil
		},
	}
}

func configRows(cfg *config.Config) [][]string {
	suppression := cfg.Scan.SuppressionFile
	if suppression == "" {
		suppression = "-"
	}
	return [][]string{
		{"logging.format", cfg.Logging.Format},
		{"logging.level", cfg.Logging.Level},
		{"logging.plain", yesNo(cfg.Logging.Plain)},
		{"hashing.algorithm", cfg.Hashing.Algorithm},
		{"hashing.chunk_size", strconv.Itoa(cfg.Hashing.ChunkSize)},
		{"catalog.busy_timeout", cfg.BusyTimeout().String()},
		{"catalog.write_batch_size", strconv.Itoa(cfg.Catalog.WriteBatchSize)},
		{"catalog.hash_retry_attempts", strconv.Itoa(cfg.Catalog.HashRetryAttempts)},
		{"catalog.hash_retry_backoff", cfg.HashRetryBackoff().String()},
		{"dedup.workers", strconv.Itoa(cfg.Dedup.Workers)},
		{"scan.suppression_file", suppression},
		{"scan.system_files", strings.Join(cfg.Scan.SystemFiles, ", ")},
		{"scan.skip_dirs", strings.Join(cfg.Scan.SkipDirs, ", ")},
		{"locate.progress_interval", cfg.ProgressInterval().String()},
		{"locate.exclude_self", yesNo(cfg.Locate.ExcludeSelf)},
	}
}


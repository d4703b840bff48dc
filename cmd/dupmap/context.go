package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"dupmap/internal/catalog"
	"dupmap/internal/config"
	"dupmap/internal/fileutil"
	"dupmap/internal/logging"
	"dupmap/internal/scan"
)

type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := strings.TrimSpace(c.flags.logFormat); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// ensureLogger builds the run logger once. Every line carries the run ID.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger.With(logging.FieldRunID, uuid.NewString())
	})
	return c.logger, c.loggerErr
}

// runtime returns the loaded configuration together with the run logger.
func (c *commandContext) runtime() (*config.Config, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (c *commandContext) hasher(cfg *config.Config) (*fileutil.Hasher, error) {
	hasher, err := fileutil.NewHasher(afero.NewOsFs(), cfg.Hashing.Algorithm, cfg.Hashing.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("init hasher: %w", err)
	}
	return hasher, nil
}

// walker builds an OS walker honouring the suppression file given on the
// command line, falling back to the configured one.
func (c *commandContext) walker(cfg *config.Config, suppressionFlag string, logger *slog.Logger) (*scan.Walker, error) {
	path := strings.TrimSpace(suppressionFlag)
	if path == "" {
		path = cfg.Scan.SuppressionFile
	}
	if path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, fmt.Errorf("resolve suppression file: %w", err)
		}
		path = expanded
	}
	fs := afero.NewOsFs()
	suppression, err := scan.LoadSuppression(fs, path)
	if err != nil {
		return nil, err
	}
	if !suppression.Empty() {
		logger.Info("using suppression file", logging.String(logging.FieldPath, path))
	}
	return scan.NewWalker(fs, scan.WalkerOptionsFromConfig(cfg, suppression, logger)), nil
}

// openCatalogues opens every path for matching, closing what was opened when
// one fails.
func openCatalogues(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, paths []string) ([]*catalog.Store, func(), error) {
	opts := catalog.OptionsFromConfig(cfg, logger)
	stores := make([]*catalog.Store, 0, len(paths))
	closeAll := func() {
		for _, store := range stores {
			_ = store.Close()
		}
	}
	for _, path := range paths {
		store, err := catalog.Open(cmd.Context(), path, opts)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open catalogue %s: %w", path, err)
		}
		stores = append(stores, store)
	}
	return stores, closeAll, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

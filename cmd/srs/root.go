// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/config"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/secrets"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// NewRootCmd creates the root srs command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "srs",
		Short:         "Semantic retrieval over a curated artifact store",
		Long:          "srs stores text artifacts, keeps a vector index in sync with them and answers hybrid vector and keyword queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "directory for the sqlite database")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newSearchCmd(),
		newImportCmd(),
		newReindexCmd(),
		newStatusCmd(),
		newSecretCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and an optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return srserr.Errorf(srserr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is left unset so the bare name never matches the
		// ./srs binary.
		v.SetConfigName("srs")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/srs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return srserr.Errorf(srserr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}
	if path := v.ConfigFileUsed(); path != "" {
		config.CheckPermissions(slog.Default(), path)
	}

	if err := v.BindPFlag("storage.data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return srserr.Errorf(srserr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return srserr.Errorf(srserr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	if n := secrets.ResolveViper(v, secretStoreFactory()); n > 0 {
		slog.Debug("resolved keyring references", "count", n)
	}
	return nil
}

// loadConfig decodes and validates the configuration prepared by initViper.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

// setupLogging installs the process logger from logging.level and
// logging.format. --verbose forces debug.
func setupLogging(w io.Writer) {
	v := viper.GetViper()
	level := slog.LevelInfo
	switch strings.ToLower(v.GetString("logging.level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if v.GetString("logging.format") == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/Siddhesh-Agarwal/cryptdb/internal/config"
	"github.com/Siddhesh-Agarwal/cryptdb/internal/document"
	"github.com/Siddhesh-Agarwal/cryptdb/internal/jsondb"
)

const passphraseEnv = "CRYPTDB_PASSPHRASE"

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool
	strict     bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cryptdb",
		Short: "Path-addressable JSON store kept in an obscured file",
		Long: `cryptdb stores a JSON document in a single file that is XORed with a key
derived from your passphrase and base64 encoded.

Values are addressed by path segments: "cryptdb set storage ssd --value 256"
stores 256 under storage -> ssd. This is obfuscation, not encryption: do not
rely on it to protect secrets.

The passphrase is read from ` + passphraseEnv + ` or prompted for.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Store.Path = dbPath
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err = buildLogger(cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (overrides store.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "fail instead of starting empty when the file cannot be decoded")

	rootCmd.AddCommand(
		createSetCommand(),
		createEditCommand(),
		createGetCommand(),
		createListCommand(),
		createDeleteCommand(),
		createConfigCommand(),
	)
	return rootCmd
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func createSetCommand() *cobra.Command {
	var raw string
	setCmd := &cobra.Command{
		Use:   "set <segment>... --value <json>",
		Short: "Store a value, creating missing parents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			if err := db.SetValue(args, parseValue(raw)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", document.JoinPath(args))
			return nil
		},
	}
	setCmd.Flags().StringVar(&raw, "value", "", "JSON value; anything that is not valid JSON is stored as text")
	_ = setCmd.MarkFlagRequired("value")
	return setCmd
}

func createEditCommand() *cobra.Command {
	var raw string
	editCmd := &cobra.Command{
		Use:   "edit <segment>... --value <json>",
		Short: "Replace an existing value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			if err := db.EditValue(args, parseValue(raw)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", document.JoinPath(args))
			return nil
		},
	}
	editCmd.Flags().StringVar(&raw, "value", "", "JSON value; anything that is not valid JSON is stored as text")
	_ = editCmd.MarkFlagRequired("value")
	return editCmd
}

func createGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get [segment]...",
		Short: "Print the value at a path, or the whole document",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			v, err := db.ReadValue(args...)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func createListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list [segment]...",
		Short:   "List the keys under a path",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			keys, err := db.Keys(args...)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No keys stored")
				return nil
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

func createDeleteCommand() *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete <segment>...",
		Short: "Delete the value at a path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return err
			}
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			path := document.JoinPath(args)
			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Are you sure you want to delete '%s'? (y/N) ", path)
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.ToLower(strings.TrimSpace(response)) != "y" {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
			}
			if err := db.DeleteValue(args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", path)
			return nil
		},
	}
	deleteCmd.Flags().BoolP("yes", "y", false, "delete without confirmation")
	return deleteCmd
}

func createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", configPath)
				return nil
			}
			if err := cfg.Save(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", configPath)
			return nil
		},
	})
	return configCmd
}

func openDB(cmd *cobra.Command) (*jsondb.DB, error) {
	passphrase, err := readPassphrase(cmd)
	if err != nil {
		return nil, err
	}

	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	opts := []jsondb.Option{
		jsondb.WithLogger(logger),
		jsondb.WithFileMode(mode),
	}
	if cfg.Key.Derivation == config.DerivationPBKDF2 {
		opts = append(opts, jsondb.WithKeyDeriver(jsondb.PBKDF2Key([]byte(cfg.Key.Salt), cfg.Key.Iterations)))
	}

	logger.Debug("opening database", zap.String("file", cfg.Store.Path), zap.Bool("strict", strict))
	if strict {
		return jsondb.OpenStrict(cfg.Store.Path, passphrase, opts...)
	}
	return jsondb.Open(cfg.Store.Path, passphrase, opts...)
}

func readPassphrase(cmd *cobra.Command) (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Enter passphrase: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(password), nil
}

// parseValue reads raw as JSON and falls back to a text value.
func parseValue(raw string) document.Value {
	var v document.Value
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return document.Text(raw)
	}
	return v
}

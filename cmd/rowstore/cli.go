package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/arthur-debert/rowstore/formats"
	"github.com/arthur-debert/rowstore/rowstore"
)

// Configuration keys, also the names of the persistent flags.
const (
	keyRoot     = "root"
	keyLogLevel = "log-level"
	keyFormat   = "format"
)

// CLI implements the Viper-driven rowstore command
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	out       io.Writer
	errOut    io.Writer
	logger    *slog.Logger
}

// NewCLI creates a CLI writing results to out and logs to errOut
func NewCLI(out, errOut io.Writer) *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		out:       out,
		errOut:    errOut,
		logger:    newLogger(errOut, "warn"),
	}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()

	return cli
}

// Execute runs the command line args
func (cli *CLI) Execute(args []string) error {
	cli.rootCmd.SetArgs(args)
	err := cli.rootCmd.Execute()
	if err != nil {
		cli.logger.Error("command failed", "error", err)
	}
	return err
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	// ROWSTORE_CONFIG names a config file explicitly
	if configFile := os.Getenv("ROWSTORE_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		cli.viperInst.SetConfigName("rowstore")
		cli.viperInst.SetConfigType("yaml")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.rowstore")
	}

	// Enable environment variable support
	cli.viperInst.SetEnvPrefix("ROWSTORE")
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cli.viperInst.AutomaticEnv()

	if root, err := rowstore.DefaultRoot(); err == nil {
		cli.viperInst.SetDefault(keyRoot, root)
	}
	cli.viperInst.SetDefault(keyLogLevel, "warn")
	cli.viperInst.SetDefault(keyFormat, formats.PlainText.Name)
}

// createRootCommand creates the root Cobra command with Viper integration
func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "rowstore",
		Short: "Inspect rowstore tables",
		Long: `rowstore lists, renders and removes the rows of a file-backed row store.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (ROWSTORE_ROOT, ROWSTORE_FORMAT, ROWSTORE_LOG_LEVEL)
3. Configuration file (ROWSTORE_CONFIG, ./rowstore.yaml or ~/.rowstore/rowstore.yaml)
4. Defaults (root ~/.rowstore/persistence, format plaintext)`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.viperInst.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			// A config file is optional unless named by ROWSTORE_CONFIG
			if err := cli.viperInst.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return fmt.Errorf("failed to read config: %w", err)
				}
			}
			cli.logger = newLogger(cli.errOut, cli.viperInst.GetString(keyLogLevel))
			cli.logger.Debug("configuration loaded",
				"root", cli.viperInst.GetString(keyRoot),
				"format", cli.viperInst.GetString(keyFormat),
				"config_file", cli.viperInst.ConfigFileUsed())
			return nil
		},
	}
	cli.rootCmd.SetOut(cli.out)
	cli.rootCmd.SetErr(cli.errOut)

	addGlobalFlags(cli.rootCmd.PersistentFlags())
}

// addGlobalFlags declares the flags every command accepts
func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String(keyRoot, "", "store root directory")
	flags.String(keyLogLevel, "warn", "log level (debug, info, warn, error)")
	flags.StringP(keyFormat, "f", formats.PlainText.Name, "output format ("+strings.Join(formats.List(), ", ")+")")
}

// openStore opens the configured store root
func (cli *CLI) openStore() (*rowstore.Store, error) {
	root := cli.viperInst.GetString(keyRoot)
	if root == "" {
		return nil, fmt.Errorf("store root is required")
	}
	return rowstore.Open(root, rowstore.WithLogger(cli.logger))
}

// format returns the configured output format
func (cli *CLI) format() (*formats.DocumentFormat, error) {
	return formats.Get(cli.viperInst.GetString(keyFormat))
}

// Package cli implements the topicnav command tree.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/topicnav/internal/version"
)

// NewRootCommand returns the "topicnav" command with all subcommands wired in.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "topicnav",
		Short:        "Inspect recordings and replay topic navigation",
		Version:      version.Full(),
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("log-level", "warn", "log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().StringP("output", "o", "table", "output format: table or json")

	cmd.AddCommand(
		newTopicsCmd(),
		newNavigateCmd(),
	)

	return cmd
}

// loggerFromCmd builds a logger writing to the command's error stream at the
// level of the --log-level flag.
func loggerFromCmd(cmd *cobra.Command) (*logrus.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return logger, nil
}

// printerFromCmd returns a printer for the --output flag writing to the
// command's output stream.
func printerFromCmd(cmd *cobra.Command) (*printer, error) {
	format, _ := cmd.Flags().GetString("output")

	switch format {
	case formatTable, formatJSON:
		return newPrinter(format, cmd.OutOrStdout()), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

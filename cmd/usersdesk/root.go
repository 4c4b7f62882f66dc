package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/usersdesk/usersdesk/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:               "usersdesk",
	Short:             "usersdesk is a back-office dashboard for browsing and managing a users register.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: prepareCommand,
}

func Execute() error {
	return rootCmd.Execute()
}

func prepareCommand(cmd *cobra.Command, _ []string) error {
	ctx := commandExecutionContext{
		CommandPath:       cmd.CommandPath(),
		UsesStructuredLog: commandUsesStructuredLogging(cmd),
	}
	setCommandExecutionContext(ctx)
	if !ctx.UsesStructuredLog {
		return nil
	}
	if _, err := logging.BootstrapFromEnv(logging.BootstrapOptions{Command: ctx.CommandPath, Writer: os.Stderr}); err != nil {
		return configError(err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, usersCmd)
}

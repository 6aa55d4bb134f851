package cmd

import (
	"github.com/spf13/cobra"
)

// CommandContext holds the persistent flags of one invocation.
type CommandContext struct {
	// Output control
	Format  string
	NoColor bool
	Verbose bool

	// Configuration
	ConfigPath string
	LogLevel   string
	LogFile    string
	Workspaces []string
}

// NewCommandContext reads the persistent flags from cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()

	format, err := flags.GetString("format")
	if err != nil {
		return nil, err
	}
	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return nil, err
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return nil, err
	}
	logFile, err := flags.GetString("log-file")
	if err != nil {
		return nil, err
	}
	workspaces, err := flags.GetStringArray("workspace")
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Format:     format,
		NoColor:    noColor,
		Verbose:    verbose,
		ConfigPath: configPath,
		LogLevel:   logLevel,
		LogFile:    logFile,
		Workspaces: workspaces,
	}, nil
}

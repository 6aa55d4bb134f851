package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ghbridge/internal/version"
)

type versionInfo struct {
	version.Info `yaml:",inline"`
	detailed     bool
}

func (v versionInfo) Text() any {
	if v.detailed {
		return v.Info.String()
	}
	return "ghbridge " + v.Short()
}

func (a *app) versionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Long:        `Print the version. With --verbose, also the git commit, build date, Go version and platform.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipServices: "true"},
		RunE: func(*cobra.Command, []string) error {
			return a.output(versionInfo{Info: version.GetInfo(), detailed: a.cmdCtx.Verbose})
		},
	}
	return versionCmd
}

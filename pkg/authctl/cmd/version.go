package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/telekom/authctl/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show authctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			info := version.GetBuildInfo()
			return rt.render(info, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "authctl %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildDate)
			})
		},
	}
}

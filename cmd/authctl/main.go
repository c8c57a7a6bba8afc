package main

import (
	"os"

	authctlcmd "github.com/telekom/authctl/pkg/authctl/cmd"
)

func main() {
	root := authctlcmd.NewRootCommand(authctlcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

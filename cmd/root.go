package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

func SetVersion(v string) {
	appVersion = v
}

var rootCmd = &cobra.Command{
	Use:   "rpcflow",
	Short: "Authenticate and attach to a JSON-RPC event stream",
	Long:  "rpcflow signs in to a remote service with the OAuth2 authorization-code flow and attaches to its JSON-RPC event stream.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.SetVersionTemplate(fmt.Sprintf("rpcflow v%s\n", appVersion))
}

func Execute() error {
	rootCmd.Version = appVersion
	return rootCmd.Execute()
}

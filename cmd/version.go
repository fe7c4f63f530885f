package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dayuer/apbridge-go/internal/protocol"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the apbridge and protocol versions",
	Run: func(cmd *cobra.Command, args []string) {
		v := protocol.ClientVersion
		fmt.Fprintf(cmd.OutOrStdout(), "apbridge %s (protocol %d.%d.%d)\n", Version, v.Major, v.Minor, v.Build)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

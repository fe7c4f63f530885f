package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dayuer/apbridge-go/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default apbridge config file",
	RunE:  runInit,
}

var initConfigPath string

func init() {
	initCmd.Flags().StringVarP(&initConfigPath, "config", "c", "", "Config file (default ~/.apbridge/config.json)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initConfigPath
	if path == "" {
		path = config.GetConfigPath()
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "Config already exists at %s\n", path)
		return nil
	}
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}
	fmt.Fprintf(out, "✓ Created config at %s\n", path)
	return nil
}

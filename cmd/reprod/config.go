package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reprodlocal/reprod/internal/config"
	"github.com/reprodlocal/reprod/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "system",
	Short:   "Show or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the current settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			p, err := config.ConfigFile()
			if err != nil {
				return err
			}
			path = p
		}
		if err := config.Write(path, cfg); err != nil {
			return err
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(cfg)
		}
		return config.Encode(os.Stdout, cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use and the database path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, used, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if used == "" {
			def, err := config.ConfigFile()
			if err != nil {
				return err
			}
			used = def + " " + ui.RenderMuted("(not created)")
		}
		fmt.Printf("Config:   %s\n", used)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		if cfg.Log.File != "" {
			fmt.Printf("Log:      %s\n", cfg.Log.File)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

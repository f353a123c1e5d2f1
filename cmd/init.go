package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/ssr/internal/config"
)

var forceInit bool

// initCmd: ssr init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter rules file",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := initConfigurationFile(cfgFile, forceInit)
		if err != nil {
			logger.Error("Error initializing rules file", zap.Error(err))
			return
		}
		fmt.Printf("Rules file created: %s\n", path)
	},
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}

func initConfigurationFile(path string, force bool) (string, error) {
	if path == "" {
		path = config.DefaultPath
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists", path)
		}
	}
	if err := config.Write(path, config.Default()); err != nil {
		return "", err
	}
	return path, nil
}

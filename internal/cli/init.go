package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pwalsh/cachemon/internal/config"
	"github.com/pwalsh/cachemon/internal/errors"
)

var initForce bool

// initCmd creates a new .cachemon.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .cachemon.yaml configuration",
	Long: `Write a .cachemon.yaml file with the default monitoring settings to
the current directory. Edit it to change the interval, duration, output
format, or destination for every run in this directory.

Examples:
  cachemon init
  cachemon init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initForce)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
}

func initCommand(force bool) error {
	path := config.ConfigFileName
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("config file already exists: %s", path),
			"Use --force to overwrite.")
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

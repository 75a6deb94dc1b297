package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "bioreactor",
		Short: "Continuous culture bioreactor controller.",
		Long: "Runs the bioreactor control loop: holds the culture temperature with a PI-driven heater, " +
			"cycles the stirrer, estimates optical density and dilutes the culture when it grows too dense.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file with BIOREACTOR_* overrides")

	root.AddCommand(newRunCmd(), newPortsCmd(), newConfigCmd())
	return root
}

// loadEnv loads variables from path. A missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

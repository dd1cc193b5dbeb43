package main

import (
	"os"
	"path/filepath"

	"github.com/samuelfneumann/crowdnav/environment"
	"github.com/samuelfneumann/crowdnav/experiment"
	"github.com/samuelfneumann/crowdnav/experiment/checkpointer"
	"github.com/spf13/cobra"
)

// TestCommand returns the command that evaluates saved weights
func TestCommand() *cobra.Command {
	var (
		weights  string
		phase    string
		episodes int
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Evaluate the weights of a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Evaluate with the configuration the run was trained with
			config := experiment.DefaultConfig()
			saved := filepath.Join(outputDir, experiment.ConfigFile)
			if configFile != "" || !checkpointer.Exists(saved) {
				var err error
				if config, err = loadConfig(); err != nil {
					return err
				}
			} else if err := checkpointer.LoadJSON(saved, &config); err != nil {
				return err
			}

			file, err := experiment.WeightsFile(weights)
			if err != nil {
				return &experiment.ConfigError{Field: "weights", Err: err}
			}
			p, err := environment.ParsePhase(phase)
			if err != nil {
				return &experiment.ConfigError{Field: "phase", Err: err}
			}

			_, err = experiment.Evaluate(config, outputDir, file, p, episodes,
				os.Stdout)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&weights, "weights", "rl", "weights to evaluate "+
		"(il, rl, resumed, best)")
	flags.StringVar(&phase, "phase", "test", "phase of the scenarios (val, "+
		"test)")
	flags.IntVar(&episodes, "episodes", 0, "number of episodes (every "+
		"scenario of the phase if 0)")
	return cmd
}

// ConfigCommand returns the command that prints the default
// configuration
func ConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), experiment.DefaultConfig())
		},
	}
}

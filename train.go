package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/experiment"
	"github.com/spf13/cobra"
)

// loadConfig returns the Config in the config file, or the default
// Config if no file was given
func loadConfig() (experiment.Config, error) {
	if configFile == "" {
		return experiment.DefaultConfig(), nil
	}
	return experiment.LoadConfig(configFile)
}

// Train trains a policy in the output directory
func Train(cmd *cobra.Command) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	resume, _ := flags.GetBool("resume")
	overwrite, _ := flags.GetBool("overwrite")
	progress, _ := flags.GetBool("progress")

	if flags.Changed("debug") {
		config.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("curriculum") {
		config.Curriculum.Enabled, _ = flags.GetBool("curriculum")
	}
	if flags.Changed("optimizer") {
		config.Optimizer, _ = flags.GetString("optimizer")
	}
	if flags.Changed("method") {
		name, _ := flags.GetString("method")
		if config.Method, err = agent.ParseMethod(name); err != nil {
			return &experiment.ConfigError{Field: "Method", Err: err}
		}
	}

	if _, err := os.Stat(outputDir); err == nil && !resume {
		if !overwrite {
			return fmt.Errorf("output directory %v already exists, use "+
				"--overwrite or --resume", outputDir)
		}
		if err := os.RemoveAll(outputDir); err != nil {
			return err
		}
	}

	loop, err := experiment.NewLoop(config, outputDir, resume, os.Stdout)
	if err != nil {
		return err
	}
	if progress {
		loop.SetProgress(os.Stderr)
	}
	return run(loop)
}

// run runs exp until it finishes or the process is interrupted
func run(exp experiment.Experiment) error {
	defer exp.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := exp.Run(ctx); err != nil {
		if saveErr := exp.Save(); saveErr != nil {
			return fmt.Errorf("%v (history not saved: %v)", err, saveErr)
		}
		return err
	}
	return nil
}

// TrainCommand returns the command that trains a policy
func TrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a policy with imitation and reinforcement learning",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Train(cmd)
		},
	}

	flags := cmd.Flags()
	flags.Bool("resume", false, "continue the run in the output directory")
	flags.Bool("overwrite", false, "replace an existing output directory")
	flags.Bool("debug", false, "log debug output and shorten training")
	flags.Bool("curriculum", false, "raise the difficulty with the "+
		"training success rate")
	flags.Bool("progress", false, "display a progress bar on stderr")
	flags.String("method", string(agent.ValueLearning), "learning method "+
		"(ValueLearning, DoubleQ)")
	flags.String("optimizer", "sgd", "optimizer (sgd, adam, rmsprop, "+
		"vanilla)")
	return cmd
}

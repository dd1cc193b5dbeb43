// Command crowdnav trains and evaluates crowd navigation policies
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	outputDir  string
)

func main() {
	root := &cobra.Command{
		Use:           "crowdnav",
		Short:         "Train robots to navigate through crowds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "",
		"JSON configuration file (default configuration if empty)")
	root.PersistentFlags().StringVar(&outputDir, "output-dir",
		"data/output", "directory of the run")

	root.AddCommand(TrainCommand())
	root.AddCommand(TestCommand())
	root.AddCommand(ConfigCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "crowdnav:", err)
		os.Exit(1)
	}
}

// printJSON writes v to w as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	return enc.Encode(v)
}

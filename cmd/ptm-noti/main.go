package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:     "ptm-noti",
		Short:   "ptm-noti polls the PTM traffic-ticket API and notifies on new tickets",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (optional)")

	rootCmd.AddCommand(runCmd(&cfgFile))
	rootCmd.AddCommand(daemonCmd(&cfgFile))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

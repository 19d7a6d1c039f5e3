package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:   "classtool",
		Short: "Inspect, verify, and rewrite JVM class files",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			commonlog.Configure(verbosity, nil)
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")

	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newRemapCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

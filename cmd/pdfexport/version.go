package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pdfexport "github.com/nicholasgasior/pdfexport-go"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of pdfexport",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pdfexport %s (layout compiled: %t)\n", version, pdfexport.LayoutCompiled)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

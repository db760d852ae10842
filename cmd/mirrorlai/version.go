package main

import (
	"github.com/ZaguanLabs/mirrorlai"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", mirrorlai.Name, mirrorlai.FullVersion())
			if mirrorlai.BuildDate != "unknown" && mirrorlai.BuildDate != "" {
				cmd.Printf("  built:   %s\n", mirrorlai.BuildDate)
			}
		},
	}
}

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List the available operations by category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		cats := reg.Categorized()
		names := make([]string, 0, len(cats))
		for cat := range cats {
			names = append(names, cat)
		}
		sort.Strings(names)
		out := cmd.OutOrStdout()
		for _, cat := range names {
			fmt.Fprintln(out, cat)
			for _, op := range cats[cat] {
				fmt.Fprintln(out, "  "+op)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(opsCmd)
}

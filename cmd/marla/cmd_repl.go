package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	marla "github.com/traherom/marla-sub003"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Send lines to R and show everything it prints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, err := startEngine(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		out := cmd.OutOrStdout()
		sc := bufio.NewScanner(cmd.InOrStdin())
		prompt := func() {
			if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				fmt.Fprint(out, "> ")
			}
		}
		prompt()
		for sc.Scan() {
			line := sc.Text()
			if line == "q()" {
				break
			}
			if line != "" {
				res, err := conn.ExecuteIgnoringErrors(ctx, line)
				fmt.Fprint(out, res)
				switch {
				case errors.Is(err, marla.ErrMultipleStatements):
					fmt.Fprintln(out, "one statement per line")
				case err != nil:
					return err
				}
			}
			prompt()
		}
		return sc.Err()
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/traherom/marla-sub003/problem"
	"github.com/traherom/marla-sub003/rutil"
)

var (
	runCommands bool
	runExport   string
)

var runCmd = &cobra.Command{
	Use:   "run PROBLEM.xml",
	Short: "Compute every leaf operation of a saved problem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		conn, err := startEngine(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		p, err := openProblem(args[0], reg, conn)
		if err != nil {
			return err
		}
		if runExport != "" {
			if err := os.MkdirAll(runExport, 0o755); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		for _, op := range p.Leaves() {
			fmt.Fprintf(out, "== %s (%s)\n", op.DisplayName(false), op.ID())
			cols, err := op.Columns(ctx)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			for _, c := range cols {
				fmt.Fprintf(out, "%s: %s\n", c.Name(), c.Display())
			}
			if op.HasPlot() {
				path, err := op.Plot(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "plot: %s\n", path)
			}
			if runCommands {
				cmds, err := op.RCommands(ctx, true)
				if err != nil {
					return err
				}
				fmt.Fprint(out, cmds)
			}
			if runExport != "" {
				if err := exportCSV(cmd, op, runExport); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func exportCSV(cmd *cobra.Command, op *problem.Operation, dir string) error {
	path := filepath.Join(dir, rutil.MakeName(op.DisplayName(true))+"-"+op.ID()[:8]+".csv")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := problem.ExportCSV(cmd.Context(), op, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	runCmd.Flags().BoolVar(&runCommands, "commands", false, "print the R commands that reproduce each result")
	runCmd.Flags().StringVar(&runExport, "export", "", "write each result as CSV into `DIR`")
	rootCmd.AddCommand(runCmd)
}

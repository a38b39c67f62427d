package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/traherom/marla-sub003/problem"
)

var testSeed uint64

var testOpsCmd = &cobra.Command{
	Use:   "test-ops [OPERATION...]",
	Short: "Run operations against random data and report failures",
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

		if testSeed == 0 {
			testSeed = uint64(time.Now().UnixNano())
		}
		p := problem.NewProblem("operation test", conn, reg)
		out := cmd.OutOrStdout()
		failed := 0
		for _, r := range problem.NewTester(p, testSeed).Run(ctx, args...) {
			if r.Passed() {
				fmt.Fprintf(out, "ok   %s\n", r.Operation)
				continue
			}
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", r.Operation, r.Err)
		}
		if failed > 0 {
			return fmt.Errorf("%d operations failed (seed %d)", failed, testSeed)
		}
		return nil
	},
}

func init() {
	testOpsCmd.Flags().Uint64Var(&testSeed, "seed", 0, "random seed, 0 picks one")
	rootCmd.AddCommand(testOpsCmd)
}

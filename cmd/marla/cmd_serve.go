package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/traherom/marla-sub003/opscript"
	"github.com/traherom/marla-sub003/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [PROBLEM.xml]",
	Short: "Serve a problem's results over HTTP",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		conn, err := startEngine(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		var path string
		if len(args) > 0 {
			path = args[0]
		}
		p, err := openProblem(path, reg, conn)
		if err != nil {
			return err
		}

		if cfg.Operations.Watch {
			w, err := opscript.NewWatcher(func(cat *opscript.Catalog, err error) {
				if err != nil {
					slog.Warn("keeping previous operations", "err", err)
					return
				}
				reg.RegisterCatalog(cat)
				p.MarkDirty()
			}, opscript.DefaultDebounce, cfg.Operations.Primary, cfg.Operations.User...)
			if err != nil {
				return err
			}
			w.Start(ctx)
			defer w.Stop()
		}

		srv := server.New(p,
			server.WithRestart(conn.Restart),
			server.WithStopTimeout(cfg.Server.StopTimeout),
		)
		if err := srv.Start(cfg.Server.Addr); err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			srv.Stop()
		}()
		err = srv.Wait()
		if errors.Is(ctx.Err(), context.Canceled) {
			slog.Info("shutting down")
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

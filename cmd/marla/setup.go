package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	marla "github.com/traherom/marla-sub003"
	"github.com/traherom/marla-sub003/opscript"
	"github.com/traherom/marla-sub003/problem"
)

func loadRegistry() (*problem.Registry, error) {
	cat, err := opscript.LoadCatalog(cfg.Operations.Primary, cfg.Operations.User...)
	if err != nil {
		return nil, err
	}
	reg := problem.NewRegistry()
	reg.RegisterCatalog(cat)
	return reg, nil
}

func startEngine(ctx context.Context) (*marla.Conn, error) {
	opts, err := cfg.EngineOptions(os.Stderr, slog.Default())
	if err != nil {
		return nil, err
	}
	return marla.Connection(ctx, cfg.Engine.Path, opts...)
}

// openProblem loads path, or returns an empty problem if path is empty.
func openProblem(path string, reg *problem.Registry, eng problem.Engine) (*problem.Problem, error) {
	if path == "" {
		return problem.NewProblem("untitled", eng, reg), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := problem.LoadProblem(f, reg, eng)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

package marla

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/traherom/marla-sub003/rutil"
)

const (
	sentinel        = "---MARLA R OUTPUT END---"
	sentinelPrinted = `[1] "` + sentinel + `"`
	sentinelCmds    = "print('" + sentinel + "')\nmessage('" + sentinel + "')\n"

	setupCmd = "options(error=dump.frames, warn=-1, device=png)\n"

	DefaultShutdownTimeout = 5 * time.Second
	DefaultRepos           = "https://cloud.r-project.org"
)

// Conn is a handle on one R process. It is safe for concurrent use;
// commands are serialized.
type Conn struct {
	path string
	cfg  connConfig
	log  *slog.Logger

	mu          sync.Mutex // held for a whole round trip
	proc        *process
	plotDir     string
	ownsPlotDir bool

	running  atomic.Bool
	counter  atomic.Int64
	restarts singleflight.Group

	rmu        sync.Mutex
	recordMode RecordMode
	debugMode  RecordMode
	transcript strings.Builder
}

type connConfig struct {
	args            []string
	env             []string
	debug           io.Writer
	debugMode       RecordMode
	logger          *slog.Logger
	plotDir         string
	plotWidth       int
	plotHeight      int
	shutdownTimeout time.Duration
	repos           string
	maxLine         int
}

type ConnOption func(*connConfig)

// WithArgs replaces the arguments R is started with.
func WithArgs(args ...string) ConnOption {
	return func(c *connConfig) {
		c.args = args
	}
}

// WithEnv adds KEY=value pairs to R's environment.
func WithEnv(env ...string) ConnOption {
	return func(c *connConfig) {
		c.env = append(c.env, env...)
	}
}

// WithDebug echoes the parts of each round trip selected by mode to w.
func WithDebug(mode RecordMode, w io.Writer) ConnOption {
	return func(c *connConfig) {
		c.debugMode = mode
		c.debug = w
	}
}

func WithLogger(l *slog.Logger) ConnOption {
	return func(c *connConfig) {
		c.logger = l
	}
}

// WithPlotDir stores plots in dir instead of a fresh temporary
// directory. The directory is not removed on Close.
func WithPlotDir(dir string) ConnOption {
	return func(c *connConfig) {
		c.plotDir = dir
	}
}

// WithPlotSize sets the png size in pixels. Zero keeps R's default.
func WithPlotSize(width, height int) ConnOption {
	return func(c *connConfig) {
		c.plotWidth = width
		c.plotHeight = height
	}
}

func WithShutdownTimeout(d time.Duration) ConnOption {
	return func(c *connConfig) {
		c.shutdownTimeout = d
	}
}

// WithRepos sets the CRAN mirror LoadLibrary installs from.
func WithRepos(url string) ConnOption {
	return func(c *connConfig) {
		c.repos = url
	}
}

// New returns a Conn for the R binary at path. The process is not
// started until Start is called. An empty path means "R".
func New(path string, opts ...ConnOption) *Conn {
	cfg := connConfig{
		args:            []string{"--slave", "--no-readline"},
		shutdownTimeout: DefaultShutdownTimeout,
		repos:           DefaultRepos,
		maxLine:         16 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if path == "" {
		path = "R"
	}
	log := cfg.logger
	if log == nil {
		log = slog.Default()
	}
	c := &Conn{
		path:      path,
		cfg:       cfg,
		log:       log.With("component", "engine"),
		debugMode: cfg.debugMode,
	}
	return c
}

// Connection creates a Conn and starts R.
func Connection(ctx context.Context, path string, opts ...ConnOption) (*Conn, error) {
	c := New(path, opts...)
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Start spawns R and configures the session. Starting a running Conn
// does nothing.
func (c *Conn) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc != nil {
		return nil
	}

	cmd := exec.Command(c.path, c.cfg.args...)
	if len(c.cfg.env) > 0 {
		cmd.Env = append(os.Environ(), c.cfg.env...)
	}
	p, err := startProcess(uuid.NewString(), cmd, c.cfg.maxLine)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.path, err)
	}
	c.proc = p
	c.running.Store(true)
	if err := c.ensurePlotDir(); err != nil {
		c.teardown()
		return err
	}

	if _, err := c.roundTrip(ctx, setupCmd, false); err != nil {
		c.teardown()
		return fmt.Errorf("%w: %s: setup failed: %v", ErrUnavailable, c.path, err)
	}
	c.log.Info("R started", "path", c.path, "session", p.id, "pid", cmd.Process.Pid)
	return nil
}

func (c *Conn) ensurePlotDir() error {
	if c.plotDir != "" {
		return nil
	}
	if c.cfg.plotDir != "" {
		if err := os.MkdirAll(c.cfg.plotDir, 0o755); err != nil {
			return fmt.Errorf("marla: creating plot directory: %w", err)
		}
		c.plotDir = c.cfg.plotDir
		return nil
	}
	dir, err := os.MkdirTemp("", "marla-plots-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return fmt.Errorf("marla: creating plot directory: %w", err)
	}
	c.plotDir = dir
	c.ownsPlotDir = true
	return nil
}

// Running reports whether the R process is alive as far as the Conn
// knows.
func (c *Conn) Running() bool {
	return c.running.Load()
}

// PlotDir returns the directory plots are written to. It is empty
// before the first Start.
func (c *Conn) PlotDir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plotDir
}

// Close stops R, killing it if it does not quit within the shutdown
// timeout, and removes the plot directory if the Conn created it.
// Closing a stopped Conn does nothing.
func (c *Conn) Close() error {
	return c.stop(true)
}

func (c *Conn) stop(removePlots bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if p := c.proc; p != nil {
		c.proc = nil
		c.running.Store(false)
		err = p.stop(c.cfg.shutdownTimeout)
		c.log.Info("R stopped", "session", p.id)
	}
	if removePlots && c.ownsPlotDir {
		if rerr := os.RemoveAll(c.plotDir); err == nil {
			err = rerr
		}
		c.plotDir = ""
		c.ownsPlotDir = false
	}
	return err
}

// Restart stops R and starts a fresh process. Plots already written
// are kept. Concurrent calls share one restart.
func (c *Conn) Restart(ctx context.Context) error {
	_, err, _ := c.restarts.Do("restart", func() (interface{}, error) {
		if err := c.stop(false); err != nil {
			c.log.Warn("stopping R before restart", "err", err)
		}
		restartsTotal.Inc()
		return nil, c.Start(ctx)
	})
	return err
}

// teardown kills a process that can no longer be talked to. c.mu must
// be held.
func (c *Conn) teardown() {
	p := c.proc
	if p == nil {
		return
	}
	c.proc = nil
	c.running.Store(false)
	if err := p.kill(); err != nil {
		c.log.Warn("killing R", "session", p.id, "err", err)
	}
	c.log.Warn("R process died", "session", p.id)
}

// Execute runs a single R statement and returns everything R printed
// for it on either stream. If R reports an error the output is still
// returned, along with an *EngineError.
func (c *Conn) Execute(ctx context.Context, cmd string) (string, error) {
	if !singleStatement.MatchString(cmd) {
		return "", ErrMultipleStatements
	}
	return c.execute(ctx, cmd, true)
}

// ExecuteIgnoringErrors is Execute without the *EngineError. Only
// failures to talk to R are returned.
func (c *Conn) ExecuteIgnoringErrors(ctx context.Context, cmd string) (string, error) {
	out, err := c.Execute(ctx, cmd)
	if IsEngineError(err) {
		err = nil
	}
	return out, err
}

func (c *Conn) execute(ctx context.Context, cmd string, record bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !strings.HasSuffix(cmd, "\n") {
		cmd += "\n"
	}
	ctx, span := tracer.Start(ctx, "engine.execute")
	defer span.End()
	span.SetAttributes(attribute.String("engine.command", strings.TrimSpace(cmd)))

	c.mu.Lock()
	defer c.mu.Unlock()
	out, err := c.roundTrip(ctx, cmd, record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// roundTrip writes cmd followed by the sentinels and reads until both
// streams have produced theirs. c.mu must be held.
func (c *Conn) roundTrip(ctx context.Context, cmd string, record bool) (string, error) {
	p := c.proc
	if p == nil {
		commandsTotal.WithLabelValues("dead").Inc()
		return "", ErrDead
	}
	start := time.Now()
	defer func() { commandDuration.Observe(time.Since(start).Seconds()) }()

	if record {
		c.recordCommand(cmd)
	}
	c.log.Debug("R command", "session", p.id, "cmd", strings.TrimSpace(cmd))
	if err := p.write(cmd + sentinelCmds); err != nil {
		c.teardown()
		commandsTotal.WithLabelValues("dead").Inc()
		return "", fmt.Errorf("%w: %v", ErrDead, err)
	}

	var out strings.Builder
	failed := false
	stdoutDone, stderrDone := false, false
	for !stdoutDone || !stderrDone {
		l, ok := <-p.lines
		if !ok {
			c.teardown()
			commandsTotal.WithLabelValues("dead").Inc()
			return "", ErrDead
		}
		switch {
		case !l.stderr && l.text == sentinelPrinted:
			stdoutDone = true
			continue
		case l.stderr && l.text == sentinel:
			stderrDone = true
			continue
		}
		if strings.HasPrefix(l.text, "Error") {
			failed = true
		}
		out.WriteString(l.text)
		out.WriteByte('\n')
	}

	res := out.String()
	if record {
		c.recordOutput(res)
	}
	if failed {
		commandsTotal.WithLabelValues("error").Inc()
		return res, &EngineError{Command: strings.TrimSpace(cmd), Output: strings.TrimSpace(res)}
	}
	commandsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (c *Conn) ExecuteFloat(ctx context.Context, cmd string) (float64, error) {
	out, err := c.Execute(ctx, cmd)
	if err != nil {
		return 0, err
	}
	return ParseFloat(out)
}

func (c *Conn) ExecuteFloats(ctx context.Context, cmd string) ([]float64, error) {
	out, err := c.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	vals := ParseFloats(out)
	if len(vals) == 0 {
		return nil, &ParseError{Want: "numbers", Output: out}
	}
	return vals, nil
}

func (c *Conn) ExecuteString(ctx context.Context, cmd string) (string, error) {
	out, err := c.Execute(ctx, cmd)
	if err != nil {
		return "", err
	}
	return ParseString(out)
}

func (c *Conn) ExecuteStrings(ctx context.Context, cmd string) ([]string, error) {
	out, err := c.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	vals := ParseStrings(out)
	if len(vals) == 0 {
		return nil, &ParseError{Want: "strings", Output: out}
	}
	return vals, nil
}

func (c *Conn) ExecuteBool(ctx context.Context, cmd string) (bool, error) {
	out, err := c.Execute(ctx, cmd)
	if err != nil {
		return false, err
	}
	return ParseBool(out)
}

func (c *Conn) ExecuteBools(ctx context.Context, cmd string) ([]bool, error) {
	out, err := c.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	vals := ParseBools(out)
	if len(vals) == 0 {
		return nil, &ParseError{Want: "logicals", Output: out}
	}
	return vals, nil
}

// ExecuteSave assigns the value of expr to a fresh variable and returns
// the variable's name.
func (c *Conn) ExecuteSave(ctx context.Context, expr string) (string, error) {
	name := c.UniqueName()
	if _, err := c.Execute(ctx, name+" <- "+expr); err != nil {
		return "", err
	}
	return name, nil
}

// UniqueName returns a variable name that has not been handed out by
// this Conn before.
func (c *Conn) UniqueName() string {
	for {
		cur := c.counter.Load()
		next := cur + 1
		if next < 0 {
			next = 0
		}
		if c.counter.CompareAndSwap(cur, next) {
			return fmt.Sprintf("marlaUnique%d", next)
		}
	}
}

// SetVariable assigns v to name in R. v may be any value rutil.Literal
// accepts: numbers, strings, booleans, slices of those, or a data
// column.
func (c *Conn) SetVariable(ctx context.Context, name string, v interface{}) (string, error) {
	lit, err := rutil.Literal(v)
	if err != nil {
		return "", err
	}
	// The literal may contain ';' inside strings, so skip the
	// single statement check.
	if _, err := c.execute(ctx, name+" <- "+lit, true); err != nil {
		return "", err
	}
	return name, nil
}

// SetUniqueVariable is SetVariable with a name chosen by UniqueName.
func (c *Conn) SetUniqueVariable(ctx context.Context, v interface{}) (string, error) {
	return c.SetVariable(ctx, c.UniqueName(), v)
}

// LoadLibrary loads the R package lib, installing it first if it is
// missing. It reports whether the package ended up loaded.
func (c *Conn) LoadLibrary(ctx context.Context, lib string) (bool, error) {
	ok, err := c.require(ctx, lib)
	if err != nil || ok {
		return ok, err
	}
	c.log.Info("installing R package", "package", lib, "repos", c.cfg.repos)
	install := fmt.Sprintf("install.packages(%s, repos=%s)", rutil.Quote(lib), rutil.Quote(c.cfg.repos))
	if _, err := c.ExecuteIgnoringErrors(ctx, install); err != nil {
		return false, err
	}
	return c.require(ctx, lib)
}

func (c *Conn) require(ctx context.Context, lib string) (bool, error) {
	out, err := c.execute(ctx, fmt.Sprintf("print(suppressWarnings(require(%s, character.only=TRUE, quietly=TRUE)))", rutil.Quote(lib)), false)
	if err != nil {
		return false, err
	}
	return ParseBool(out)
}

package marla

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// line is one line of R output tagged with the stream it came from.
type line struct {
	stderr bool
	text   string
}

// process is one running R child. Its stdout and stderr are merged
// into lines, which is closed once both streams reach EOF.
type process struct {
	id    string
	cmd   *exec.Cmd
	in    io.WriteCloser
	lines chan line
	pumps errgroup.Group
}

// startProcess runs cmd and starts pumping its output. A line longer
// than maxLine is a read failure and kills the process.
func startProcess(id string, cmd *exec.Cmd, maxLine int) (*process, error) {
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &process{
		id:    id,
		cmd:   cmd,
		in:    in,
		lines: make(chan line, 64),
	}
	p.pumps.Go(p.pump(stdout, false, maxLine))
	p.pumps.Go(p.pump(stderr, true, maxLine))
	go func() {
		p.pumps.Wait()
		close(p.lines)
	}()
	return p, nil
}

func (p *process) pump(r io.Reader, stderr bool, maxLine int) func() error {
	return func() error {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, min(64*1024, maxLine)), maxLine)
		for sc.Scan() {
			p.lines <- line{stderr: stderr, text: sc.Text()}
		}
		err := sc.Err()
		if err != nil {
			// The sentinel may be lost with the rest of this stream, so
			// end the process. The other pump then sees EOF and lines
			// closes, which the reader reports as a dead engine.
			p.cmd.Process.Kill()
			io.Copy(io.Discard, r)
		}
		return err
	}
}

func (p *process) write(s string) error {
	_, err := io.WriteString(p.in, s)
	return err
}

// stop asks R to quit and waits up to timeout for it to exit before
// killing it. Output produced while quitting is discarded.
func (p *process) stop(timeout time.Duration) error {
	p.write("q()\n")
	p.in.Close()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case _, ok := <-p.lines:
			if !ok {
				return p.wait()
			}
		case <-timer.C:
			return p.kill()
		}
	}
}

// kill ends the process without asking.
func (p *process) kill() error {
	p.cmd.Process.Kill()
	p.in.Close()
	for range p.lines {
	}
	err := p.wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func (p *process) wait() error {
	err := p.cmd.Wait()
	if perr := p.pumps.Wait(); err == nil {
		err = perr
	}
	return err
}

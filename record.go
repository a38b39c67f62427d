package marla

import (
	"fmt"
	"strings"
)

// RecordMode selects which parts of each round trip are kept in the
// transcript or echoed to the debug writer.
type RecordMode int

const (
	RecordOff RecordMode = iota
	RecordCommands
	RecordOutput
	RecordFull
)

func (m RecordMode) String() string {
	switch m {
	case RecordCommands:
		return "commands"
	case RecordOutput:
		return "output"
	case RecordFull:
		return "full"
	}
	return "off"
}

// ParseRecordMode accepts the names produced by String.
func ParseRecordMode(s string) (RecordMode, error) {
	switch strings.ToLower(s) {
	case "", "off", "disabled":
		return RecordOff, nil
	case "commands", "cmds_only":
		return RecordCommands, nil
	case "output", "output_only":
		return RecordOutput, nil
	case "full":
		return RecordFull, nil
	}
	return RecordOff, fmt.Errorf("marla: unknown record mode %q", s)
}

func (m RecordMode) commands() bool { return m == RecordCommands || m == RecordFull }
func (m RecordMode) output() bool   { return m == RecordOutput || m == RecordFull }

// SetRecordMode changes what is appended to the transcript and returns
// the previous mode.
func (c *Conn) SetRecordMode(m RecordMode) RecordMode {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	old := c.recordMode
	c.recordMode = m
	return old
}

func (c *Conn) RecordMode() RecordMode {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	return c.recordMode
}

// SetDebugMode changes what is echoed to the debug writer and returns
// the previous mode.
func (c *Conn) SetDebugMode(m RecordMode) RecordMode {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	old := c.debugMode
	c.debugMode = m
	return old
}

func (c *Conn) DebugMode() RecordMode {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	return c.debugMode
}

// FetchTranscript returns everything recorded since the last fetch and
// clears the buffer.
func (c *Conn) FetchTranscript() string {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	s := c.transcript.String()
	c.transcript.Reset()
	return s
}

func (c *Conn) recordCommand(cmd string) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	if c.recordMode.commands() {
		c.transcript.WriteString(cmd)
	}
	if c.debugMode.commands() && c.cfg.debug != nil {
		fmt.Fprint(c.cfg.debug, "> "+cmd)
	}
}

func (c *Conn) recordOutput(out string) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	if c.recordMode.output() {
		c.transcript.WriteString(out)
	}
	if c.debugMode.output() && c.cfg.debug != nil {
		fmt.Fprint(c.cfg.debug, out)
	}
}

package marla

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/traherom/marla-sub003/rutil"
)

// StartGraphicOutput redirects R's graphics device to a new png file in
// the plot directory and returns the file's path. The file is complete
// once StopGraphicOutput returns.
func (c *Conn) StartGraphicOutput(ctx context.Context) (string, error) {
	dir := c.PlotDir()
	if dir == "" {
		return "", ErrDead
	}
	path := filepath.Join(dir, "plot-"+uuid.NewString()+".png")
	g := rutil.GraphCfg{}
	if c.cfg.plotWidth > 0 {
		g = g.WithWidth(c.cfg.plotWidth)
	}
	if c.cfg.plotHeight > 0 {
		g = g.WithHeight(c.cfg.plotHeight)
	}
	if _, err := c.execute(ctx, g.PNG(filepath.ToSlash(path)), false); err != nil {
		return "", err
	}
	return path, nil
}

// StopGraphicOutput closes the device opened by StartGraphicOutput.
func (c *Conn) StopGraphicOutput(ctx context.Context) error {
	_, err := c.execute(ctx, "invisible(dev.off())", false)
	return err
}

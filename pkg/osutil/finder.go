// Package osutil runs the platform binary finder for requirement checks.
package osutil

import (
	"context"
	"os/exec"

	"github.com/pkg/errors"
)

// FinderName is the command used to locate executables on PATH.
func FinderName() string { return finderName }

// FindBinary reports whether name resolves on PATH according to the
// platform finder. The finder runs in its own process group so that a
// cancelled ctx kills it together with any children.
func FindBinary(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("binary name cannot be empty")
	}
	cmd := exec.CommandContext(ctx, finderName, name)
	configure(cmd)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrapf(ctxErr, "lookup of %s interrupted", name)
		}
		return errors.Wrapf(err, "%s not found", name)
	}
	return nil
}

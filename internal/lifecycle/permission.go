package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/cjeanneret/TorchGo/internal/debug"
	"github.com/cjeanneret/TorchGo/internal/hw/flash"
	"golang.org/x/sys/unix"
)

// PermissionGate is the authorization check done before a device is
// acquired. Both methods return an error wrapping flash.ErrPermissionDenied
// when access is not granted.
type PermissionGate interface {
	Check() error
	Request(ctx context.Context) error
}

// AllowAll grants everything. Used with the mock GPIO driver.
type AllowAll struct{}

func (AllowAll) Check() error { return nil }
func (AllowAll) Request(_ context.Context) error { return nil }

// FileAccessGate grants access when the process may write every path
// (device nodes or LED attributes). Missing paths are not a permission
// problem and are left for the backend to report.
type FileAccessGate struct {
	Paths []string
}

func (g FileAccessGate) Check() error {
	for _, p := range g.Paths {
		err := unix.Access(p, unix.W_OK)
		switch {
		case err == nil, errors.Is(err, unix.ENOENT):
			continue
		case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM), errors.Is(err, unix.EROFS):
			return fmt.Errorf("write access to %s: %w", p, flash.ErrPermissionDenied)
		default:
			return fmt.Errorf("check access to %s: %w", p, err)
		}
	}
	return nil
}

// Request re-checks access. Linux has no interactive prompt; access is
// granted out of band (udev rule, group membership) and picked up here.
func (g FileAccessGate) Request(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	debug.Info("Requesting write access to %v", g.Paths)
	return g.Check()
}

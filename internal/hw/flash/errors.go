package flash

import "errors"

var (
	// ErrHardwareAbsent means the platform has no controllable flash at all.
	ErrHardwareAbsent = errors.New("no flash hardware")
	// ErrPermissionDenied means the caller may not open the flash device.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable means the device is held elsewhere, released, or failed to open.
	ErrUnavailable = errors.New("flash device unavailable")
	// ErrUnsupported means the requested mode is not supported by the device.
	ErrUnsupported = errors.New("flash mode unsupported")
)

package flash

// Backend is a platform's flash capability. It answers the capability
// query and hands out at most one Unit at a time.
type Backend interface {
	// Name identifies the backend in logs ("gpio", "sysfs", ...).
	Name() string
	// HasFlash reports whether a controllable flash exists.
	HasFlash() bool
	// Open takes the flash exclusively. It fails with ErrUnavailable when
	// already held and ErrPermissionDenied when not authorized.
	Open() (Unit, error)
}

// Unit is an opened flash. Apply selects the drive mode; Activate and
// Deactivate are the activation side-channel: the LED is lit only while
// the unit is active and the applied mode is not Off. How that is achieved
// (a GPIO level, a sysfs brightness write, a preview session) is up to the
// backend.
type Unit interface {
	SupportedModes() ModeSet
	Apply(m Mode) error
	Activate() error
	Deactivate() error
	Close() error
}

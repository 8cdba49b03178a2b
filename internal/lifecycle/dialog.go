package lifecycle

import (
	"errors"

	"github.com/cjeanneret/TorchGo/internal/hw/flash"
	"github.com/cjeanneret/TorchGo/internal/messages"
)

// DialogKind classifies a user-facing failure.
type DialogKind string

const (
	DialogHardwareAbsent   DialogKind = "hardware_absent"
	DialogPermissionDenied DialogKind = "permission_denied"
	DialogUnavailable      DialogKind = "unavailable"
	DialogError            DialogKind = "error"
)

// Dialog is a localized failure message with a single action. Exit is set
// when the action should end the application.
type Dialog struct {
	Kind    DialogKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Action  string     `json:"action"`
	Exit    bool       `json:"exit,omitempty"`
}

// IncompatibleDialog is shown when the capability check fails and no
// binder is built.
func IncompatibleDialog(msgs *messages.Catalog) Dialog {
	return Dialog{
		Kind:    DialogHardwareAbsent,
		Title:   msgs.Get(messages.NoFlashTitle),
		Message: msgs.Get(messages.NoFlashMessage),
		Action:  msgs.Get(messages.Exit),
		Exit:    true,
	}
}

// dialogFor maps err to a dialog. ok is false for errors that are handled
// silently (no usable flash mode).
func dialogFor(msgs *messages.Catalog, err error) (d Dialog, ok bool) {
	switch {
	case err == nil, errors.Is(err, flash.ErrUnsupported):
		return Dialog{}, false
	case errors.Is(err, flash.ErrHardwareAbsent):
		return IncompatibleDialog(msgs), true
	case errors.Is(err, flash.ErrPermissionDenied):
		return Dialog{
			Kind:    DialogPermissionDenied,
			Title:   msgs.Get(messages.PermissionTitle),
			Message: msgs.Get(messages.PermissionMessage),
			Action:  msgs.Get(messages.OK),
		}, true
	case errors.Is(err, flash.ErrUnavailable):
		return Dialog{
			Kind:    DialogUnavailable,
			Title:   msgs.Get(messages.UnavailableTitle),
			Message: msgs.Get(messages.UnavailableMessage),
			Action:  msgs.Get(messages.OK),
		}, true
	default:
		return Dialog{
			Kind:    DialogError,
			Title:   msgs.Get(messages.ErrorTitle),
			Message: msgs.Get(messages.ErrorMessage, err.Error()),
			Action:  msgs.Get(messages.OK),
		}, true
	}
}

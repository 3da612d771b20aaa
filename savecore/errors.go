package savecore

import "errors"

var (
	// ErrInvalidPluginName is returned when a plugin name is not registered as a core writer.
	ErrInvalidPluginName = errors.New("invalid plugin name")

	// ErrProcessMismatch is returned when a thread does not belong to the bound process.
	ErrProcessMismatch = errors.New("thread does not belong to the target process")

	// ErrMissingProcess is returned when no valid process is bound.
	ErrMissingProcess = errors.New("no valid process specified")

	// ErrMissingStyle is returned when a query needs a core style and none is set.
	ErrMissingStyle = errors.New("core style is unspecified")

	// ErrNoValidRegions is returned when the configuration resolves to zero readable bytes.
	ErrNoValidRegions = errors.New("no valid memory regions to save")

	ErrMissingOutputFile = errors.New("no output file specified")

	ErrInvalidRegion = errors.New("invalid memory region")
)

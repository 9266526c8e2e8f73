package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Sequencing errors
	ErrBusy           = fmt.Errorf("operation already in progress")
	ErrSendInProgress = fmt.Errorf("email send in progress")
	ErrInvalidState   = fmt.Errorf("invalid campaign state")

	// Backend errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrTransport          = fmt.Errorf("network or processing error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Archive errors
	ErrArchiveDisabled = fmt.Errorf("send log archive is disabled (set database.path)")
	ErrRunNotFound     = fmt.Errorf("send run not found")

	// Input validation errors
	ErrValidation         = fmt.Errorf("validation failed")
	ErrNoTrackSelected    = fmt.Errorf("%w: a track must be selected", ErrValidation)
	ErrMissingDescription = fmt.Errorf("%w: a song description is required", ErrValidation)
	ErrNoContactable      = fmt.Errorf("%w: no contactable playlists are visible", ErrValidation)
	ErrInvalidCap         = fmt.Errorf("%w: email limit must be a number (1 or more)", ErrValidation)
	ErrEmptyContent       = fmt.Errorf("%w: subject and template body cannot be empty", ErrValidation)
	ErrNoVariations       = fmt.Errorf("%w: email variations have not been generated", ErrValidation)
	ErrNoPlaylists        = fmt.Errorf("%w: no playlists in the current view", ErrValidation)
	ErrNoColumns          = fmt.Errorf("%w: at least one column must be selected", ErrValidation)
	ErrInvalidFormat      = fmt.Errorf("%w: unsupported export format", ErrValidation)
	ErrUnsupportedFile    = fmt.Errorf("%w: please select an Excel file", ErrValidation)
	ErrMissingArgument    = fmt.Errorf("%w: missing required argument", ErrValidation)
)

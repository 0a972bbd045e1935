package provision

import (
	"errors"

	"datasetup/internal/services"
)

// ExitDataUnavailable is the process exit status when the required files
// could not be made present by any method.
const ExitDataUnavailable = 2

var (
	// ErrUnavailable marks a method that cannot run in this environment.
	ErrUnavailable = services.ErrUnavailable
	// ErrDataUnavailable is returned by the CLI after a failed outcome.
	ErrDataUnavailable = errors.New("required data files unavailable")
	// ErrLocked reports another provisioning run holding the lock.
	ErrLocked = errors.New("another provisioning run is in progress")
)

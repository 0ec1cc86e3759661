package pipeline

import (
	"errors"
	"fmt"
)

// ErrDuplicatePipeName is matched by every DuplicateNameError via errors.Is
var ErrDuplicatePipeName = errors.New("duplicate pipe name")

// DuplicateNameError is returned when a named pipe collides with a pipe
// already present on the same pipeline. It is a setup-time error and is never
// produced while executing.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("the %q pipe already exists on the pipeline", e.Name)
}

// Is reports whether target is ErrDuplicatePipeName
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicatePipeName
}

// IsDuplicateName checks if err is (or wraps) a DuplicateNameError
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicatePipeName)
}

package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPreconditionViolation is matched by errors that reject a batch
	// before any tool runs.
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrNoBundleKey is returned when an encrypted bundle is extracted
	// without a configured bundle key.
	ErrNoBundleKey = errors.New("bundle is encrypted but no bundle key is configured")
)

const maxListedNames = 5

// MissingAssetsError lists entries that have no blob in the content store.
type MissingAssetsError struct {
	Names []string
}

func (e *MissingAssetsError) Error() string {
	listed := e.Names
	suffix := ""
	if len(listed) > maxListedNames {
		listed = listed[:maxListedNames]
		suffix = fmt.Sprintf(" and %d more", len(e.Names)-maxListedNames)
	}
	return fmt.Sprintf("missing assets: %s%s; run download first", strings.Join(listed, ", "), suffix)
}

// Is makes MissingAssetsError match ErrPreconditionViolation.
func (e *MissingAssetsError) Is(target error) bool {
	return target == ErrPreconditionViolation
}

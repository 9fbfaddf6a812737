package storefront

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable means a remote-backed mutation did not take effect.
	// The cached view is left as it was.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrMigrationPartial means some guest items were not merged on sign-in.
	// They stay in the local snapshot and MigrateLocalData retries them.
	ErrMigrationPartial = errors.New("guest data migration incomplete")

	// ErrRemoteUnauthorized means the remote store rejected the session's
	// credentials. Retrying with the same token will not help.
	ErrRemoteUnauthorized = errors.New("remote store rejected credentials")

	ErrNotAuthenticated = errors.New("controller is in guest mode")
	ErrInvalidProduct   = errors.New("product id is required")
)

func remoteErr(op string, err error) error {
	if errors.Is(err, ErrRemoteUnauthorized) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRemoteUnavailable, err)
}

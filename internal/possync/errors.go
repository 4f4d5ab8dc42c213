package possync

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fekuna/omnipos-pos-sync/internal/remote"
)

var (
	ErrSyncLocked        = errors.New("a sync is already running for this merchant")
	ErrMerchantNotFound  = errors.New("merchant not found")
	ErrCredentialMissing = errors.New("merchant has no remote access token")
	ErrCredentialExpired = errors.New("remote rejected the merchant credential")
	ErrTenantNotFound    = errors.New("merchant is not mapped to a remote tenant")
	ErrRemoteUnavailable = errors.New("remote system unavailable")
)

// IsConfiguration reports whether err needs an operator (a token, a tenant
// mapping) rather than a retry.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrMerchantNotFound) ||
		errors.Is(err, ErrCredentialMissing) ||
		errors.Is(err, ErrCredentialExpired) ||
		errors.Is(err, ErrTenantNotFound)
}

// classifyFetch maps a failure to reach a remote collection onto the sync
// error taxonomy.
func classifyFetch(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var se *remote.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Unauthorized():
			return fmt.Errorf("%w: %w", ErrCredentialExpired, err)
		case se.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrTenantNotFound, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
}

// cutShort reports a transient fetch failure past the first page. Such a
// failure ends the collection walk but not the run.
func cutShort(err error) (*remote.FetchError, bool) {
	var fe *remote.FetchError
	if !errors.As(err, &fe) || fe.Offset == 0 {
		return nil, false
	}
	return fe, errors.Is(classifyFetch(err), ErrRemoteUnavailable)
}

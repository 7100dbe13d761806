package errs

import "errors"

// Common sentinel errors for cross-layer signaling. Callers classify with
// errors.Is; layers add context with fmt.Errorf("...: %w", err).
var (
	// ErrValidation marks bad input. Surfaced as a form error, never retried.
	ErrValidation = errors.New("validation")
	// ErrNotFound marks an unknown id, path or branch.
	ErrNotFound = errors.New("not_found")
	// ErrConflict marks a stale content hash on a conditional remote write.
	// The sync engine retries it once; it reaches callers only after that.
	ErrConflict = errors.New("conflict")
	// ErrAuth marks an invalid or expired remote credential (401/403).
	ErrAuth = errors.New("auth")
	// ErrNetwork marks a transport failure. Retryable.
	ErrNetwork = errors.New("network")
	// ErrInvalidPassword marks a vault decryption or verification failure.
	// A credential that decrypts but fails verification is still invalid.
	ErrInvalidPassword = errors.New("invalid_password")
	// ErrUnsupported marks a permanently rejected operation, such as
	// editing a ledger entry in place.
	ErrUnsupported = errors.New("unsupported")
)

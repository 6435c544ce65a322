package sweep

import "errors"

// ErrPermissionDenied is returned when an operation requires a permission
// the gate does not grant. The caller decides whether to re-request; the
// engine never retries on its own.
var ErrPermissionDenied = errors.New("permission denied")

// ErrResourceExhausted marks a store write that failed because the batch
// was too large to apply. The scanner recovers by halving the batch.
var ErrResourceExhausted = errors.New("resource exhausted")

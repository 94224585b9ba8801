package object

import "errors"

// ============================================================================
// Standard Object Store Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across all object store implementations. Callers should check for these
// errors with errors.Is and map them to their own status codes.
//
// Usage Pattern:
//
//	body, _, err := store.Get(ctx, key)
//	if err != nil {
//	    if errors.Is(err, object.ErrObjectNotFound) {
//	        return http.StatusNotFound
//	    }
//	    return http.StatusInternalServerError
//	}
//
// Error Wrapping:
// Implementations should wrap these errors with additional context:
//
//	return fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)

var (
	// ErrObjectNotFound indicates the requested key does not exist.
	//
	// This error is returned when:
	//   - Get() or Head() is called with a non-existent key
	//   - Copy() is called with a non-existent source
	//
	// Delete() never returns it: deleting a missing key succeeds.
	//
	// Protocol Mapping:
	//   - HTTP: 404 Not Found
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectExists indicates a conditional write found an existing object.
	//
	// This error is returned only by Put() with PutOptions.IfNoneMatch set.
	// Plain writes overwrite.
	//
	// Protocol Mapping:
	//   - HTTP: 412 Precondition Failed
	ErrObjectExists = errors.New("object already exists")

	// ErrInvalidKey indicates the key is empty or malformed.
	//
	// Protocol Mapping:
	//   - HTTP: 400 Bad Request
	ErrInvalidKey = errors.New("invalid object key")

	// ErrNotSupported indicates the backend does not implement an optional
	// capability.
	//
	// This is a permanent error - retrying won't help.
	ErrNotSupported = errors.New("operation not supported")

	// ErrUnavailable indicates the backend is temporarily unavailable.
	//
	// This is a transient error - retrying may succeed.
	//
	// Protocol Mapping:
	//   - HTTP: 503 Service Unavailable
	ErrUnavailable = errors.New("object store unavailable")
)

package sandbox

import "errors"

var (
	// ErrScriptUnavailable is returned if the entry module or one of its
	// imports could not be found or read.
	ErrScriptUnavailable = errors.New("script not found or unreadable")

	// ErrLoad is returned if a module could not be resolved, transpiled
	// or compiled.
	ErrLoad = errors.New("script failed to load")

	// ErrEvaluate is returned if the script threw, or left a promise
	// rejection unhandled.
	ErrEvaluate = errors.New("script evaluation failed")

	// ErrTimeout is returned if the script did not settle within the
	// configured timeout.
	ErrTimeout = errors.New("script timed out")

	// ErrBadResource is returned for handles that were never issued or
	// have been released.
	ErrBadResource = errors.New("bad resource id")

	ErrAlreadySent   = errors.New("response already sent")
	ErrChannelClosed = errors.New("completion channel closed without a response")
)

// ErrNoStore is thrown to scripts using the database when the invocation
// has no connection pool.
var ErrNoStore = errors.New("no database configured")

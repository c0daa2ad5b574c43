package future

import "errors"

// ErrCancelled resolves a Cell that was discarded before ever being
// written to, so callers awaiting it never hang.
var ErrCancelled = errors.New("future: cancelled")

package journal

import "errors"

// ErrOutOfOrder is returned when an appended block does not extend the log.
var ErrOutOfOrder = errors.New("journal entry out of order")

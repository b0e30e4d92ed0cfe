package navigator

import "errors"

// ErrTooLarge means a document exceeds its safe-to-load thresholds and the
// caller did not force the load.
var ErrTooLarge = errors.New("document too large to load")

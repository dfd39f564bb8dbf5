package password

import "errors"

// ErrInvalidOptions is returned by Generate when the requested length is out
// of range or no character class is selected.
var ErrInvalidOptions = errors.New("invalid generator options")

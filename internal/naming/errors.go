package naming

import "errors"

// ErrUnknownLocale is returned when no built-in type table matches a locale name.
var ErrUnknownLocale = errors.New("naming: unknown locale")

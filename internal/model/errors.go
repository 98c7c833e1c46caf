package model

import "errors"

// ErrInvalidURL is returned for URLs without a scheme or host.
var ErrInvalidURL = errors.New("invalid URL")

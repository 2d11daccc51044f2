package signal

import "errors"

// ErrInvalidInput is returned for negative counts or unusable configuration.
// It aborts the whole analysis run.
var ErrInvalidInput = errors.New("invalid input")

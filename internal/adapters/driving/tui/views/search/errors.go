package search

import "errors"

// ErrNoResolutionService indicates that no resolution service was provided.
var ErrNoResolutionService = errors.New("resolution service is required")

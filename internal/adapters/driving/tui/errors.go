package tui

import "errors"

// ErrMissingResolutionService is returned when the resolution service is not provided.
var ErrMissingResolutionService = errors.New("tui: resolution service is required")

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("tui: retrieval service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")

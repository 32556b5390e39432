// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// knowledge base. It exposes the two-stage resolve-keywords / get-docs
// protocol to coding assistants.
package mcp

import "errors"

// Errors returned when required ports are missing.
var (
	ErrMissingResolutionService = errors.New("mcp: resolution service is required")
	ErrMissingRetrievalService  = errors.New("mcp: retrieval service is required")
)

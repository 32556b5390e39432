package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// mockResolutionService is a mock implementation of driving.ResolutionService.
type mockResolutionService struct {
	result  *domain.ResolveResult
	err     error
	lastReq domain.ResolveRequest
}

func (m *mockResolutionService) Resolve(_ context.Context, req domain.ResolveRequest) (*domain.ResolveResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.ResolveResult{}, nil
	}
	return m.result, nil
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results  []domain.DocResult
	exported map[string]string
	err      error
	lastKeys []string
}

func (m *mockRetrievalService) GetDocs(_ context.Context, keys []string) ([]domain.DocResult, error) {
	m.lastKeys = keys
	return m.results, m.err
}

func (m *mockRetrievalService) Export(_ context.Context, documentID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	content, ok := m.exported[documentID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return content, nil
}

// mockCorpusService implements only ListDocuments; other methods panic.
type mockCorpusService struct {
	driving.CorpusService
	documents []domain.Document
	err       error
}

func (m *mockCorpusService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func newTestServer(t interface{ Fatalf(string, ...any) }, ports *Ports) *Server {
	if ports.Resolution == nil {
		ports.Resolution = &mockResolutionService{}
	}
	if ports.Retrieval == nil {
		ports.Retrieval = &mockRetrievalService{}
	}
	s, err := NewServer(ports)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

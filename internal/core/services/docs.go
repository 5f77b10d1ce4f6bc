package services

import (
	"context"
	"fmt"

	"github.com/loci-labs/loci/internal/core/domain"
	"github.com/loci-labs/loci/internal/core/ports/driven"
	"github.com/loci-labs/loci/internal/core/ports/driving"
	"github.com/loci-labs/loci/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService answers questions about indexed documents and
// removes them on request.
type DocumentService struct {
	store driven.DocumentStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(store driven.DocumentStore) *DocumentService {
	return &DocumentService{store: store}
}

// List returns indexed documents, optionally restricted to a project.
func (s *DocumentService) List(ctx context.Context, project string) ([]domain.Document, error) {
	docs, err := s.store.ListDocuments(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// Detail returns one document with its chunks in chunk order.
func (s *DocumentService) Detail(ctx context.Context, sourcePath, project string) (*domain.Document, []domain.Chunk, error) {
	doc, err := s.store.Document(ctx, sourcePath, project)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.store.Chunks(ctx, doc.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading chunks: %w", err)
	}
	return doc, chunks, nil
}

// Remove deletes a document and every derived row.
func (s *DocumentService) Remove(ctx context.Context, sourcePath, project string) error {
	if err := s.store.DeleteDocument(ctx, sourcePath, project); err != nil {
		return err
	}
	logger.Info("Removed document %s (project %q)", sourcePath, project)
	return nil
}

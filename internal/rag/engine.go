package rag

import (
	"context"
	"errors"
	"fmt"

	"carevault/internal/contextutil"
	"carevault/internal/storage"
)

// ChunkRetriever finds the closest chunks to a question within one owner's
// partition.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, ownerID, question string, topK int) ([]RetrievedChunk, error)
}

// Generator produces an answer from an assembled context and a question.
type Generator interface {
	Generate(ctx context.Context, contextText, question string) (string, error)
}

// Engine answers questions over an owner's indexed documents.
type Engine interface {
	Answer(ctx context.Context, req QueryRequest) (*Answer, error)
}

// RAGEngine wires retrieval, context assembly, and generation.
type RAGEngine struct {
	retriever ChunkRetriever
	chunks    storage.ChunkStore
	assembler *Assembler
	generator Generator
}

// NewEngine creates the default engine.
func NewEngine(retriever ChunkRetriever, chunks storage.ChunkStore, assembler *Assembler, generator Generator) *RAGEngine {
	return &RAGEngine{
		retriever: retriever,
		chunks:    chunks,
		assembler: assembler,
		generator: generator,
	}
}

// Answer retrieves the owner's closest chunks, assembles a bounded context,
// and generates a cited answer. A retrieved chunk whose stored row names a
// different owner is treated as an isolation fault and aborts the query.
func (e *RAGEngine) Answer(ctx context.Context, req QueryRequest) (*Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	retrieved, err := e.retriever.Retrieve(ctx, req.OwnerID, req.Question, req.TopK)
	if err != nil {
		return nil, err
	}

	contextChunks := make([]ContextChunk, 0, len(retrieved))
	for _, rc := range retrieved {
		rec, err := e.chunks.GetByID(ctx, rc.ChunkID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// The document was deleted between search and load; its hit
				// simply drops out.
				continue
			}
			return nil, fmt.Errorf("failed to load chunk %s: %w", rc.ChunkID, err)
		}
		if rec.OwnerID != req.OwnerID {
			logger.ErrorContext(ctx, "retrieved chunk crosses owner boundary",
				"chunk_id", rc.ChunkID, "owner_id", req.OwnerID)
			return nil, ErrCrossOwnerAccess
		}
		contextChunks = append(contextChunks, ContextChunk{RetrievedChunk: rc, Text: rec.Text})
	}

	contextText, citations := e.assembler.Assemble(contextChunks)

	answer, err := e.generator.Generate(ctx, contextText, req.Question)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "answered question",
		"owner_id", req.OwnerID, "citations", len(citations))
	return &Answer{Answer: answer, Citations: citations}, nil
}

package rag

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"carevault/internal/llm"
	"carevault/internal/storage"
	"carevault/internal/storage/mocks"
)

// fakeRetriever returns preset chunks.
type fakeRetriever struct {
	chunks []RetrievedChunk
	err    error
}

func (f *fakeRetriever) Retrieve(context.Context, string, string, int) ([]RetrievedChunk, error) {
	return f.chunks, f.err
}

// fakeGenerator records the context it received.
type fakeGenerator struct {
	gotContext string
	answer     string
	err        error
}

func (f *fakeGenerator) Generate(_ context.Context, contextText, _ string) (string, error) {
	f.gotContext = contextText
	return f.answer, f.err
}

func TestEngineAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	chunkStore := mocks.NewMockChunkStore(ctrl)

	retriever := &fakeRetriever{chunks: []RetrievedChunk{
		{ChunkID: "c1", DocumentID: "doc-1", Score: 0.9},
		{ChunkID: "c2", DocumentID: "doc-1", Score: 0.7},
	}}
	chunkStore.EXPECT().GetByID(gomock.Any(), "c1").Return(
		&storage.ChunkRecord{ID: "c1", DocumentID: "doc-1", OwnerID: "owner-1", Text: "hemoglobin was 13.5"}, nil)
	chunkStore.EXPECT().GetByID(gomock.Any(), "c2").Return(
		&storage.ChunkRecord{ID: "c2", DocumentID: "doc-1", OwnerID: "owner-1", Text: "follow-up in six months"}, nil)

	gen := &fakeGenerator{answer: "Your hemoglobin was 13.5."}
	engine := NewEngine(retriever, chunkStore, NewAssembler(1000), gen)

	answer, err := engine.Answer(context.Background(), QueryRequest{OwnerID: "owner-1", Question: "what was my hemoglobin?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Answer != "Your hemoglobin was 13.5." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if len(answer.Citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(answer.Citations))
	}
	if answer.Citations[0].ChunkID != "c1" {
		t.Errorf("first citation = %+v, want c1", answer.Citations[0])
	}
}

func TestEngineAnswer_CrossOwnerChunkAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	chunkStore := mocks.NewMockChunkStore(ctrl)

	retriever := &fakeRetriever{chunks: []RetrievedChunk{
		{ChunkID: "c1", DocumentID: "doc-9", Score: 0.9},
	}}
	chunkStore.EXPECT().GetByID(gomock.Any(), "c1").Return(
		&storage.ChunkRecord{ID: "c1", DocumentID: "doc-9", OwnerID: "owner-2", Text: "someone else's record"}, nil)

	engine := NewEngine(retriever, chunkStore, NewAssembler(1000), &fakeGenerator{})

	_, err := engine.Answer(context.Background(), QueryRequest{OwnerID: "owner-1", Question: "question"})
	if !errors.Is(err, ErrCrossOwnerAccess) {
		t.Fatalf("Answer() error = %v, want ErrCrossOwnerAccess", err)
	}
}

func TestEngineAnswer_DeletedChunkDropsOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	chunkStore := mocks.NewMockChunkStore(ctrl)

	retriever := &fakeRetriever{chunks: []RetrievedChunk{
		{ChunkID: "gone", DocumentID: "doc-1", Score: 0.9},
		{ChunkID: "c2", DocumentID: "doc-2", Score: 0.8},
	}}
	chunkStore.EXPECT().GetByID(gomock.Any(), "gone").Return(nil, storage.ErrNotFound)
	chunkStore.EXPECT().GetByID(gomock.Any(), "c2").Return(
		&storage.ChunkRecord{ID: "c2", DocumentID: "doc-2", OwnerID: "owner-1", Text: "still here"}, nil)

	gen := &fakeGenerator{answer: "answer"}
	engine := NewEngine(retriever, chunkStore, NewAssembler(1000), gen)

	answer, err := engine.Answer(context.Background(), QueryRequest{OwnerID: "owner-1", Question: "question"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].ChunkID != "c2" {
		t.Errorf("citations = %+v, want only c2", answer.Citations)
	}
}

func TestEngineAnswer_NoContextPassesMarker(t *testing.T) {
	ctrl := gomock.NewController(t)
	chunkStore := mocks.NewMockChunkStore(ctrl)

	gen := &fakeGenerator{answer: "I could not find that in your documents."}
	engine := NewEngine(&fakeRetriever{}, chunkStore, NewAssembler(1000), gen)

	answer, err := engine.Answer(context.Background(), QueryRequest{OwnerID: "owner-1", Question: "question"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if gen.gotContext != llm.NoContextMarker {
		t.Errorf("generator got context %q, want marker", gen.gotContext)
	}
	if len(answer.Citations) != 0 {
		t.Errorf("got %d citations, want 0", len(answer.Citations))
	}
}

func TestEngineAnswer_GeneratorFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	chunkStore := mocks.NewMockChunkStore(ctrl)

	gen := &fakeGenerator{err: llm.ErrGenerationUnavailable}
	engine := NewEngine(&fakeRetriever{}, chunkStore, NewAssembler(1000), gen)

	_, err := engine.Answer(context.Background(), QueryRequest{OwnerID: "owner-1", Question: "question"})
	if !errors.Is(err, llm.ErrGenerationUnavailable) {
		t.Fatalf("Answer() error = %v, want ErrGenerationUnavailable", err)
	}
}

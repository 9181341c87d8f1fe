package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"

	"contract-review/internal/models"

	"github.com/philippgille/chromem-go"
)

// ErrIndexAbsent signals that no persisted index exists at the configured
// location. Callers treat it as "build a fresh index", not as a failure.
var ErrIndexAbsent = errors.New("index absent")

// StoreConfig selects the persistence strategy explicitly: either a pure
// in-memory index (one per uploaded document) or a persistent one backed by
// a chromem database directory.
type StoreConfig struct {
	InMemory   bool
	Path       string
	Collection string
	Compress   bool
}

// SearchResult is one retrieved chunk with its similarity to the query.
type SearchResult struct {
	Chunk      models.Chunk
	Similarity float32
}

// Store wraps a chromem-go collection holding one vector per chunk.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	nextID     int
}

// New creates a fresh store. Persistent stores write through to disk on
// every add; in-memory stores never touch disk.
func New(cfg StoreConfig) (*Store, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &Store{
		db:         db,
		collection: collection,
		nextID:     collection.Count(),
	}, nil
}

// Load opens a previously persisted store. It returns ErrIndexAbsent when
// the location or collection does not exist or holds no documents.
func Load(cfg StoreConfig) (*Store, error) {
	if cfg.InMemory {
		return nil, ErrIndexAbsent
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, ErrIndexAbsent
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	collection := db.GetCollection(cfg.Collection, nil)
	if collection == nil || collection.Count() == 0 {
		return nil, ErrIndexAbsent
	}
	return &Store{
		db:         db,
		collection: collection,
		nextID:     collection.Count(),
	}, nil
}

// Add stores one vector per chunk. The call is all-or-nothing: every
// document of the batch is validated before anything is handed to the
// collection, so a bad entry leaves existing entries untouched.
func (s *Store) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	dimension := len(vectors[0])
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		if chunk.Content == "" {
			return fmt.Errorf("chunk %d has empty content", i)
		}
		if len(vectors[i]) != dimension {
			return fmt.Errorf("vector %d dimension mismatch: %d != %d", i, len(vectors[i]), dimension)
		}
		// zero-padded insertion ordinal, so sorting by ID preserves
		// insertion order for similarity ties
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%09d", s.nextID+i),
			Content:   chunk.Content,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"source": chunk.SourcePath,
				"page":   strconv.Itoa(chunk.PageNumber),
				"chunk":  strconv.Itoa(chunk.ChunkID),
			},
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	s.nextID += len(docs)
	return nil
}

// Search returns up to k nearest chunks by similarity, descending, with
// ties broken by insertion order. An empty store or k <= 0 yields an empty
// result, never an error.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	count := s.Count()
	if k <= 0 || count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	// chromem picks which tied documents survive its own cutoff in map
	// order, so rank the full collection here and cut to k afterwards
	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}

	out := make([]SearchResult, len(results))
	for i, res := range results {
		page, _ := strconv.Atoi(res.Metadata["page"])
		chunkID, _ := strconv.Atoi(res.Metadata["chunk"])
		out[i] = SearchResult{
			Chunk: models.Chunk{
				Content:    res.Content,
				SourcePath: res.Metadata["source"],
				PageNumber: page,
				ChunkID:    chunkID,
			},
			Similarity: res.Similarity,
		}
	}
	return out, nil
}

// Count reports the number of indexed chunks.
func (s *Store) Count() int {
	if s == nil || s.collection == nil {
		return 0
	}
	return s.collection.Count()
}

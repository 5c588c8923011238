package memento

import (
	"context"

	"github.com/liliang-cn/sqvect/v2/pkg/core"
)

// sqvectVectorStore backs VectorStore with a pure-Go, SQLite-resident vector
// index. Each user gets its own sqvect collection, giving multi-tenant
// partitioning for free instead of hand-rolled BLOB scans (the teacher's
// vectors table + in-Go cosine loop in store.go/scoring.go).
type sqvectVectorStore struct {
	store core.Store
}

// NewSqvectVectorStore opens (or creates) the sqvect-backed index at path.
func NewSqvectVectorStore(ctx context.Context, path string, dim int) (*sqvectVectorStore, error) {
	st, err := core.New(path, dim)
	if err != nil {
		return nil, errInternal("vectorstore.NewSqvectVectorStore", err)
	}
	if err := st.Init(ctx); err != nil {
		return nil, errInternal("vectorstore.NewSqvectVectorStore", err)
	}
	return &sqvectVectorStore{store: st}, nil
}

func (v *sqvectVectorStore) Upsert(ctx context.Context, memoryID string, embedding []float32, filters VectorFilters) error {
	if vaultExcluded(filters.Tier) {
		return errPrecondition("vectorstore.Upsert", "vault-tier memories are never embedded")
	}
	emb := &core.Embedding{
		ID:         memoryID,
		Collection: filters.User,
		Vector:     embedding,
		Metadata: map[string]string{
			metadataKeyTier:      string(filters.Tier),
			metadataKeyForgotten: string(filters.ForgottenState),
		},
	}
	if err := v.store.Upsert(ctx, emb); err != nil {
		return errProvider("vectorstore.Upsert", err)
	}
	return nil
}

func (v *sqvectVectorStore) Search(ctx context.Context, user string, query []float32, filters VectorFilters, k int) ([]VectorMatch, error) {
	opts := core.SearchOptions{
		Collection: user,
		TopK:       k,
		Filter:     map[string]string{},
	}
	if filters.Tier != "" {
		opts.Filter[metadataKeyTier] = string(filters.Tier)
	}
	if filters.ForgottenState != "" {
		opts.Filter[metadataKeyForgotten] = string(filters.ForgottenState)
	}

	results, err := v.store.Search(ctx, query, opts)
	if err != nil {
		return nil, errProvider("vectorstore.Search", err)
	}

	matches := make([]VectorMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, VectorMatch{
			MemoryID: r.ID,
			Distance: 1 - r.Score,
		})
	}
	return matches, nil
}

func (v *sqvectVectorStore) Delete(ctx context.Context, memoryID string) error {
	if err := v.store.Delete(ctx, memoryID); err != nil {
		return errProvider("vectorstore.Delete", err)
	}
	return nil
}

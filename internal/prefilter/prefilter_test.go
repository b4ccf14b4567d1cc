package prefilter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/hashindex"
)

func entry(key string, phash, dhash uint64, category string) catalogmodel.CatalogEntry {
	return catalogmodel.CatalogEntry{
		Key:       key,
		PHash:     phash,
		DHash:     dhash,
		FileMD5:   key,
		Metadata: catalogmodel.CatalogMetadata{
			ImagePath:     key,
			ImageCategory: category,
			OverlayName:   "very rare",
		},
	}
}

func buildIndex() *hashindex.HashIndex {
	idx := hashindex.New()
	idx.Put(entry("a.png", 0b0000, 0b0000, "space/weapons/fore"))
	idx.Put(entry("b.png", 0b0001, 0b0000, "space/weapons/fore"))
	idx.Put(entry("c.png", 0b1111, 0b0000, "space/weapons/fore"))
	idx.Put(entry("wrong_category.png", 0b0000, 0b0000, "ground/kit_modules"))
	return idx
}

func TestRunKeepsTopHitPlusNearTies(t *testing.T) {
	idx := buildIndex()
	slot := catalogmodel.Slot{PHash: 0b0000, DHash: 0b0000}
	out, err := Run(context.Background(), idx, slot, []string{"space/"}, DefaultConfig())
	require.NoError(t, err)

	paths := map[string]bool{}
	for _, c := range out {
		paths[c.FilePath] = true
	}
	assert.True(t, paths["a.png"])
	assert.True(t, paths["b.png"])
	assert.False(t, paths["wrong_category.png"])
}

func TestAdaptiveCutoffTiesExample(t *testing.T) {
	cfg := DefaultConfig()
	got := adaptiveCutoff([]int{3, 3, 4, 10, 11}, cfg)
	assert.Equal(t, 11, got)
}

func TestAdaptiveCutoffSingleSample(t *testing.T) {
	cfg := DefaultConfig()
	got := adaptiveCutoff([]int{5}, cfg)
	assert.Equal(t, 5, got)
}

func TestRunEmptyWhenNoHits(t *testing.T) {
	idx := hashindex.New()
	slot := catalogmodel.Slot{PHash: 0xFFFFFFFFFFFFFFFF, DHash: 0xFFFFFFFFFFFFFFFF}
	out, err := Run(context.Background(), idx, slot, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, out)
}

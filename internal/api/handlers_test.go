package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryBudget(t *testing.T) {
	cases := []struct {
		k       int
		nDocs   int
		nChunks int
	}{
		{0, 3, 5},   // defaults
		{-5, 3, 5},  // defaults
		{1, 2, 3},   // floors
		{6, 2, 3},
		{9, 3, 3},
		{15, 5, 3},
		{20, 6, 3},
		{100, 6, 3}, // clamped to 20
	}
	for _, c := range cases {
		nDocs, nChunks := queryBudget(c.k)
		assert.Equal(t, c.nDocs, nDocs, "k=%d", c.k)
		assert.Equal(t, c.nChunks, nChunks, "k=%d", c.k)
	}
}

func TestSimilarityPct(t *testing.T) {
	assert.Equal(t, 100.0, similarityPct(0))
	assert.Equal(t, 75.0, similarityPct(2.5))
	assert.Equal(t, 0.0, similarityPct(15))
	assert.Equal(t, 0.0, similarityPct(10))
}

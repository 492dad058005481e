package main

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIsDeterministic(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	a := generate(now, 50, rand.New(rand.NewPCG(1, 1)))
	b := generate(now, 50, rand.New(rand.NewPCG(1, 1)))
	require.Len(t, a.items, 50)
	assert.Equal(t, len(a.payments), len(b.payments))
	for i := range a.items {
		assert.True(t, a.items[i].costMin.Equal(b.items[i].costMin))
	}
}

func TestGenerateKeepsRangesAndSalesConsistent(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	store := generate(now, 200, rand.New(rand.NewPCG(7, 9)))

	for _, it := range store.items {
		assert.True(t, it.costMin.LessThanOrEqual(it.costMax))
		assert.True(t, it.priceMin.LessThanOrEqual(it.priceMax))
		assert.False(t, it.acquiredAt.After(now))
	}
	for _, p := range store.payments {
		item := store.items[p.item-1]
		assert.Equal(t, "sold", item.status)
		assert.False(t, p.paidAt.Before(item.acquiredAt))
		assert.False(t, p.paidAt.After(now))
	}
	for _, p := range store.plans {
		assert.True(t, p.paid.LessThan(p.total))
	}
}

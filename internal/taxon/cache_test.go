package taxon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

func TestLRUCache(t *testing.T) {
	c := NewLRUCache(2)

	c.Add("Gadus morhua", core.TaxonResult{Name: "Gadus morhua", Status: core.TaxonAccepted})
	c.Add("Abra alba", core.TaxonResult{Name: "Abra alba", Status: core.TaxonAccepted})

	_, ok := c.Get("Gadus morhua")
	assert.True(t, ok)

	// Abra alba is now least recently used.
	c.Add("Doris", core.TaxonResult{Name: "Doris", Status: core.TaxonNotFound})

	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("Abra alba")
	assert.False(t, ok)
	got, ok := c.Get("Doris")
	assert.True(t, ok)
	assert.Equal(t, core.TaxonNotFound, got.Status)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestNewLRUCache_DefaultSize(t *testing.T) {
	c := NewLRUCache(0)
	for i := 0; i < 10; i++ {
		c.Add(string(rune('a'+i)), core.TaxonResult{})
	}
	assert.Equal(t, 10, c.Len())
}

package facts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)

	assert.Empty(t, store.Load("finance-manual.txt"))

	rules := map[string]interface{}{"tiers": []interface{}{}}
	require.NoError(t, store.Upsert("finance-manual.txt", "spending_rules", rules))
	require.NoError(t, store.Upsert("finance-manual.txt", "control_rules", map[string]interface{}{"travel_rules": []interface{}{}}))

	got := store.Load("finance-manual.txt")
	assert.Contains(t, got, "spending_rules")
	assert.Contains(t, got, "control_rules")

	// Facts survive a process restart via the per-document file.
	second, err := NewStore(dir)
	require.NoError(t, err)
	reloaded := second.Load("finance-manual.txt")
	assert.Contains(t, reloaded, "spending_rules")
	assert.Contains(t, reloaded, "control_rules")
}

func TestStoreIsolatesDocuments(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Upsert("a.txt", "spending_rules", map[string]interface{}{}))
	assert.Empty(t, store.Load("b.txt"))
}

func TestStoreTreatsCorruptFileAsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt.json"), []byte("{not json"), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.Empty(t, store.Load("bad.txt"))
}

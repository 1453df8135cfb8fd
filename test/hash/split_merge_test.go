package hash_test

import (
	"testing"

	"dinodb/pkg/hash"
	"dinodb/pkg/pager"
	"dinodb/test/utils"
)

// newIdentityIndex builds a HashIndex whose hash function is the identity:
// useful for deterministically driving splits and merges by choosing keys
// whose bit patterns are known ahead of time, instead of depending on
// whatever xxHash happens to produce.
func newIdentityIndex(t *testing.T, headerDepth, dirDepth, bucketSize int64) *hash.HashIndex[int64, int64] {
	t.Helper()
	dbName := utils.GetTempDbFile(t)
	bp, err := pager.New(dbName)
	if err != nil {
		t.Fatal(err)
	}
	codec := hash.Int64Codec{}
	caps := hash.Capabilities[int64, int64]{
		KeyCodec: codec,
		ValCodec: codec,
		Hash:     hash.IdentityHash64,
		Equal:    hash.EqualComparable[int64](),
	}
	index, err := hash.NewHashIndex[int64, int64]("identity-test", bp, caps, headerDepth, dirDepth, bucketSize)
	if err != nil {
		t.Fatal(err)
	}
	return index
}

// newIdentityIndexSized is newIdentityIndex with an explicitly sized buffer
// pool, for scenarios that need to force eviction/refetching under growth.
func newIdentityIndexSized(t *testing.T, headerDepth, dirDepth, bucketSize int64, numFrames int) *hash.HashIndex[int64, int64] {
	t.Helper()
	dbName := utils.GetTempDbFile(t)
	bp, err := pager.NewSized(dbName, numFrames)
	if err != nil {
		t.Fatal(err)
	}
	codec := hash.Int64Codec{}
	caps := hash.Capabilities[int64, int64]{
		KeyCodec: codec,
		ValCodec: codec,
		Hash:     hash.IdentityHash64,
		Equal:    hash.EqualComparable[int64](),
	}
	index, err := hash.NewHashIndex[int64, int64]("identity-test-sized", bp, caps, headerDepth, dirDepth, bucketSize)
	if err != nil {
		t.Fatal(err)
	}
	return index
}

// Inserting more keys than a single bucket holds must trigger a split
// (and, once local depth catches up to global depth, a directory doubling)
// rather than losing entries or overflowing the bucket.
func TestHashSplitOnFill(t *testing.T) {
	index := newIdentityIndex(t, 2, 6, 4)
	defer index.Close()

	const n = 64
	for i := int64(0); i < n; i++ {
		inserted, err := index.Insert(i, i*2)
		if err != nil {
			t.Fatalf("Insert(%d) failed: %s", i, err)
		}
		if !inserted {
			t.Fatalf("Insert(%d) unexpectedly reported failure", i)
		}
	}

	for i := int64(0); i < n; i++ {
		val, found, err := index.GetValue(i)
		if err != nil {
			t.Fatalf("GetValue(%d) failed: %s", i, err)
		}
		if !found || val != i*2 {
			t.Fatalf("expected (%d, %d), got (%d, %v)", i, i*2, val, found)
		}
	}

	if err := index.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity failed after fill: %s", err)
	}
}

// Removing every key from a bucket must be able to recursively merge it back
// into its split image, freeing the emptied page for reuse, without losing
// any of the surviving entries elsewhere in the index.
func TestHashRecursiveMerge(t *testing.T) {
	index := newIdentityIndex(t, 2, 6, 4)
	defer index.Close()

	const n = 128
	for i := int64(0); i < n; i++ {
		if _, err := index.Insert(i, -i); err != nil {
			t.Fatalf("Insert(%d) failed: %s", i, err)
		}
	}
	if err := index.VerifyIntegrity(); err != nil {
		t.Fatalf("VerifyIntegrity failed after fill: %s", err)
	}
	peakPages := index.GetPager().GetNumPages()

	// Remove every odd key; the survivors (evens) must still all be found,
	// and buckets that emptied out entirely should have merged.
	for i := int64(1); i < n; i += 2 {
		removed, err := index.Remove(i)
		if err != nil {
			t.Fatalf("Remove(%d) failed: %s", i, err)
		}
		if !removed {
			t.Fatalf("Remove(%d) unexpectedly reported not-found", i)
		}
	}
	if err := index.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity failed after partial removal: %s", err)
	}

	for i := int64(0); i < n; i += 2 {
		val, found, err := index.GetValue(i)
		if err != nil {
			t.Fatalf("GetValue(%d) failed: %s", i, err)
		}
		if !found || val != -i {
			t.Fatalf("expected (%d, %d) to survive, got (%d, %v)", i, -i, val, found)
		}
	}
	for i := int64(1); i < n; i += 2 {
		if _, found, err := index.GetValue(i); err != nil || found {
			t.Fatalf("expected key %d to be gone, found=%v err=%v", i, found, err)
		}
	}

	// Now remove everything else; the directory should shrink all the way
	// back down and every bucket page freed by a merge should be available
	// for reuse rather than leaking pages forever.
	for i := int64(0); i < n; i += 2 {
		if _, err := index.Remove(i); err != nil {
			t.Fatalf("Remove(%d) failed: %s", i, err)
		}
	}
	if err := index.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity failed after draining the index: %s", err)
	}

	// Reinserting the same number of keys should fit within the page budget
	// the first fill already established, since emptied pages are recycled.
	for i := int64(0); i < n; i++ {
		if _, err := index.Insert(i, i); err != nil {
			t.Fatalf("Insert(%d) failed on refill: %s", i, err)
		}
	}
	if index.GetPager().GetNumPages() > peakPages {
		t.Errorf("expected page count to stay at or below the first peak (%d) after refill, got %d", peakPages, index.GetPager().GetNumPages())
	}
}

// Repeated grow/shrink cycles (insert a batch, remove the whole batch) must
// not leak pages: once the pager has grown to accommodate one batch, later
// batches should reuse the same freed pages rather than growing forever.
func TestHashChurn(t *testing.T) {
	index := newIdentityIndex(t, 2, 6, 4)
	defer index.Close()

	const batch = 64
	const cycles = 5
	var pagesAfterFirstCycle int64

	for cycle := 0; cycle < cycles; cycle++ {
		for i := int64(0); i < batch; i++ {
			if _, err := index.Insert(i, i); err != nil {
				t.Fatalf("cycle %d: Insert(%d) failed: %s", cycle, i, err)
			}
		}
		if err := index.VerifyIntegrity(); err != nil {
			t.Fatalf("cycle %d: VerifyIntegrity failed after insert: %s", cycle, err)
		}
		for i := int64(0); i < batch; i++ {
			if _, err := index.Remove(i); err != nil {
				t.Fatalf("cycle %d: Remove(%d) failed: %s", cycle, i, err)
			}
		}
		if err := index.VerifyIntegrity(); err != nil {
			t.Fatalf("cycle %d: VerifyIntegrity failed after remove: %s", cycle, err)
		}

		if cycle == 0 {
			pagesAfterFirstCycle = index.GetPager().GetNumPages()
		} else if index.GetPager().GetNumPages() > pagesAfterFirstCycle {
			t.Errorf("cycle %d: page count grew from %d to %d; freed pages are not being reused", cycle, pagesAfterFirstCycle, index.GetPager().GetNumPages())
		}
	}
}

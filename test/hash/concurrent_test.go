package hash_test

import (
	"testing"

	"golang.org/x/sync/errgroup"

	"dinodb/pkg/hash"
	"dinodb/pkg/pager"
	"dinodb/test/utils"

	"github.com/google/uuid"
)

// newUUIDValuedIndex builds an int64-keyed, uuid.UUID-valued HashIndex, to
// exercise the capability set with a value type OpenTable's default int64/int64
// index never uses, and with MurmurHash3 rather than xxHash as its HashFunc.
func newUUIDValuedIndex(t *testing.T) *hash.HashIndex[int64, uuid.UUID] {
	t.Helper()
	dbName := utils.GetTempDbFile(t)
	bp, err := pager.New(dbName)
	if err != nil {
		t.Fatal(err)
	}
	keyCodec := hash.Int64Codec{}
	valCodec := hash.UUIDCodec{}
	caps := hash.Capabilities[int64, uuid.UUID]{
		KeyCodec: keyCodec,
		ValCodec: valCodec,
		Hash:     hash.Murmur3Hash64[int64](keyCodec),
		Equal:    hash.EqualComparable[int64](),
	}
	bucketMaxSize := hash.BucketMaxSizeFor(keyCodec.Size(), valCodec.Size())
	index, err := hash.NewHashIndex[int64, uuid.UUID]("concurrent-test", bp, caps, 4, 6, bucketMaxSize)
	if err != nil {
		t.Fatal(err)
	}
	return index
}

// When several goroutines race to insert the same key, exactly one Insert
// call must report success; the index's directory write latch serializes the
// rest of them against it.
func TestHashConcurrentInsertSameKey(t *testing.T) {
	index := newUUIDValuedIndex(t)
	defer index.Close()

	const racers = 16
	const key = int64(7)

	results := make([]bool, racers)
	var group errgroup.Group
	for i := 0; i < racers; i++ {
		i := i
		group.Go(func() error {
			value, err := uuid.NewRandom()
			if err != nil {
				return err
			}
			inserted, err := index.Insert(key, value)
			if err != nil {
				return err
			}
			results[i] = inserted
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent insert failed: %s", err)
	}

	successes := 0
	for _, ok := range results {
		if ok {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 successful insert of a contended key, got %d", successes)
	}

	if _, found, err := index.GetValue(key); err != nil || !found {
		t.Fatalf("expected key %d to be present after the race, found=%v err=%v", key, found, err)
	}
	if err := index.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity failed: %s", err)
	}
}

// Concurrent inserts of distinct keys must all succeed and all be
// subsequently findable, exercising the directory write latch under
// contention that doesn't collide on a single bucket.
func TestHashConcurrentInsertDistinctKeys(t *testing.T) {
	index := newUUIDValuedIndex(t)
	defer index.Close()

	const n = 200
	values := make([]uuid.UUID, n)
	for i := range values {
		v, err := uuid.NewRandom()
		if err != nil {
			t.Fatal(err)
		}
		values[i] = v
	}

	var group errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		group.Go(func() error {
			inserted, err := index.Insert(int64(i), values[i])
			if err != nil {
				return err
			}
			if !inserted {
				t.Errorf("Insert(%d) unexpectedly reported failure", i)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent insert failed: %s", err)
	}

	for i := 0; i < n; i++ {
		val, found, err := index.GetValue(int64(i))
		if err != nil || !found || val != values[i] {
			t.Fatalf("expected key %d -> %s, got %s found=%v err=%v", i, values[i], val, found, err)
		}
	}
	if err := index.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity failed: %s", err)
	}
}

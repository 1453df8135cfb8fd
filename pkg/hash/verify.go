package hash

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// VerifyIntegrity walks the header and every reachable directory and bucket,
// returning an error describing the first invariant it finds violated. It
// never mutates anything and is meant for tests and offline diagnostics, not
// the insert/remove hot path.
func (idx *HashIndex[K, V]) VerifyIntegrity() error {
	hrg, err := idx.pager.FetchPageRead(RootPageID)
	if err != nil {
		return err
	}
	headerSlots := numSlots(openHeaderPage(hrg.Data()).GetMaxDepth())
	hrg.Release()

	seenKeys := make(map[string]bool) // every key that's appeared in any bucket so far
	// Tracks which bucket page ids a directory has already claimed, sized to
	// the whole pager's address space so a second, different directory
	// claiming the same page id is caught in O(1) instead of a cross-product
	// scan over every directory pair.
	claimed := bitset.New(uint(idx.pager.GetNumPages()) + 1)

	for hSlot := int64(0); hSlot < headerSlots; hSlot++ {
		hrg, err := idx.pager.FetchPageRead(RootPageID)
		if err != nil {
			return err
		}
		dirID := openHeaderPage(hrg.Data()).GetDirPageID(hSlot)
		hrg.Release()
		if dirID == InvalidPageID {
			continue
		}
		if err := idx.verifyDirectory(dirID, claimed, seenKeys); err != nil {
			return err
		}
	}
	return nil
}

func (idx *HashIndex[K, V]) verifyDirectory(dirID PageID, claimed *bitset.BitSet, seenKeys map[string]bool) error {
	drg, err := idx.pager.FetchPageRead(int64(dirID))
	if err != nil {
		return err
	}
	dir := openDirectoryPage(drg.Data())
	globalDepth := dir.GetGlobalDepth()
	maxDepth := dir.GetMaxDepth()
	numSlotsLive := numSlots(globalDepth)

	alreadyClaimedHere := make(map[PageID]bool)

	for slot := int64(0); slot < numSlotsLive; slot++ {
		localDepth := dir.GetLocalDepth(slot)
		bucketID := dir.GetBucketPageID(slot)

		if localDepth > globalDepth || globalDepth > maxDepth { // I1
			drg.Release()
			return fmt.Errorf("hash: directory %d slot %d violates I1: local depth %d, global depth %d, max depth %d", dirID, slot, localDepth, globalDepth, maxDepth)
		}
		if bucketID == InvalidPageID {
			drg.Release()
			return fmt.Errorf("hash: directory %d slot %d is live but has no bucket", dirID, slot)
		}

		firstVisit := !alreadyClaimedHere[bucketID]
		if firstVisit {
			if claimed.Test(uint(bucketID)) {
				drg.Release()
				return fmt.Errorf("hash: I4 violated: bucket page %d is referenced by more than one directory", bucketID)
			}
			claimed.Set(uint(bucketID))
			alreadyClaimedHere[bucketID] = true
		}

		// I2: every other slot sharing this bucket must agree on local depth
		// and on the low localDepth bits of its own index.
		lowMask := numSlots(localDepth) - 1
		for other := slot + 1; other < numSlotsLive; other++ {
			if dir.GetBucketPageID(other) != bucketID {
				continue
			}
			if dir.GetLocalDepth(other) != localDepth {
				drg.Release()
				return fmt.Errorf("hash: I2 violated: directory %d slots %d and %d share bucket %d but have local depths %d and %d", dirID, slot, other, bucketID, localDepth, dir.GetLocalDepth(other))
			}
			if slot&lowMask != other&lowMask {
				drg.Release()
				return fmt.Errorf("hash: I2 violated: directory %d slots %d and %d share bucket %d but disagree on their low %d bits", dirID, slot, other, bucketID, localDepth)
			}
		}

		// A bucket shared by several slots is scanned once; I2 above already
		// guarantees those slots agree on the low bits I3 checks.
		if firstVisit {
			if err := idx.verifyBucket(bucketID, slot, localDepth, seenKeys); err != nil {
				drg.Release()
				return err
			}
		}
	}
	drg.Release()
	return nil
}

func (idx *HashIndex[K, V]) verifyBucket(bucketID PageID, slot, localDepth int64, seenKeys map[string]bool) error {
	brg, err := idx.pager.FetchPageRead(int64(bucketID))
	if err != nil {
		return err
	}
	defer brg.Release()
	bucket := openBucketPage[K, V](brg.Data(), idx.caps.KeyCodec, idx.caps.ValCodec)

	lowMask := numSlots(localDepth) - 1
	slotLowBits := slot & lowMask
	for _, e := range bucket.Entries() {
		hash := int64(idx.caps.Hash(e.Key))
		if hash&lowMask != slotLowBits { // I3
			return fmt.Errorf("hash: I3 violated: key in bucket %d hashes to low %d bits %d, but the bucket is reachable only via slots with low bits %d", bucketID, localDepth, hash&lowMask, slotLowBits)
		}

		keyBytes := make([]byte, idx.caps.KeyCodec.Size())
		idx.caps.KeyCodec.Encode(e.Key, keyBytes)
		keyStr := string(keyBytes)
		if seenKeys[keyStr] { // I5
			return fmt.Errorf("hash: I5 violated: a key appears in more than one bucket")
		}
		seenKeys[keyStr] = true
	}
	return nil
}

package hash

import (
	"errors"
	"fmt"

	"dinodb/pkg/pager"
)

// HashIndex is an on-disk extendible hash index: a header page fans the top
// bits of a key's hash out to a directory page, which in turn fans the low
// bits out to a bucket page holding the actual entries. Buckets split when
// they overflow (doubling the directory if needed) and merge back together
// when emptied, keeping the directory no larger than the data demands.
type HashIndex[K any, V any] struct {
	name              string
	pager             *pager.Pager
	caps              Capabilities[K, V]
	headerMaxDepth    int64
	directoryMaxDepth int64
	bucketMaxSize     int64
}

// NewHashIndex constructs an index backed by a fresh (empty) buffer pool,
// formatting its header page at RootPageID.
func NewHashIndex[K any, V any](name string, bp *pager.Pager, caps Capabilities[K, V], headerMaxDepth, directoryMaxDepth, bucketMaxSize int64) (*HashIndex[K, V], error) {
	if bp.GetNumPages() != 0 {
		return nil, errors.New("hash: NewHashIndex requires an empty buffer pool; use OpenHashIndex to reopen one")
	}
	idx := &HashIndex[K, V]{
		name:              name,
		pager:             bp,
		caps:              caps,
		headerMaxDepth:    headerMaxDepth,
		directoryMaxDepth: directoryMaxDepth,
		bucketMaxSize:     bucketMaxSize,
	}
	wg, pn, err := bp.NewPageWrite()
	if err != nil {
		return nil, err
	}
	defer wg.Release()
	if pn != RootPageID {
		return nil, fmt.Errorf("hash: expected header page to be page %d, got %d", RootPageID, pn)
	}
	initHeaderPage(wg, headerMaxDepth)
	return idx, nil
}

// OpenHashIndex wraps an existing buffer pool: formatting it fresh if it has
// no pages yet, or reopening the header already persisted on page 0.
func OpenHashIndex[K any, V any](name string, bp *pager.Pager, caps Capabilities[K, V], headerMaxDepth, directoryMaxDepth, bucketMaxSize int64) (*HashIndex[K, V], error) {
	if bp.GetNumPages() == 0 {
		return NewHashIndex(name, bp, caps, headerMaxDepth, directoryMaxDepth, bucketMaxSize)
	}
	rg, err := bp.FetchPageRead(RootPageID)
	if err != nil {
		return nil, err
	}
	persistedMaxDepth := openHeaderPage(rg.Data()).GetMaxDepth()
	rg.Release()
	return &HashIndex[K, V]{
		name:              name,
		pager:             bp,
		caps:              caps,
		headerMaxDepth:    persistedMaxDepth,
		directoryMaxDepth: directoryMaxDepth,
		bucketMaxSize:     bucketMaxSize,
	}, nil
}

// GetName returns the index's opaque identifier, used for diagnostics.
func (idx *HashIndex[K, V]) GetName() string {
	return idx.name
}

// GetPager returns the buffer pool backing this index.
func (idx *HashIndex[K, V]) GetPager() *pager.Pager {
	return idx.pager
}

// Close flushes and closes the backing pager.
func (idx *HashIndex[K, V]) Close() error {
	return idx.pager.Close()
}

// ensureDirectory returns the directory page id that hash's top bits select,
// lazily allocating a fresh (empty) directory and bucket for that header slot
// if one doesn't exist yet.
func (idx *HashIndex[K, V]) ensureDirectory(hash uint64) (PageID, error) {
	hrg, err := idx.pager.FetchPageRead(RootPageID)
	if err != nil {
		return InvalidPageID, err
	}
	header := openHeaderPage(hrg.Data())
	slot := header.HashToDirectoryIndex(hash)
	dirID := header.GetDirPageID(slot)
	hrg.Release()
	if dirID != InvalidPageID {
		return dirID, nil
	}

	// Upgrade to a write latch only to allocate a directory for this slot.
	hwg, err := idx.pager.FetchPageWrite(RootPageID)
	if err != nil {
		return InvalidPageID, err
	}
	defer hwg.Release()
	header = openHeaderPage(hwg.Data())
	dirID = header.GetDirPageID(slot)
	if dirID != InvalidPageID {
		return dirID, nil // lost the race to another writer; they already made one
	}

	dwg, dirPN, err := idx.pager.NewPageWrite()
	if err != nil {
		return InvalidPageID, err
	}
	dir := initDirectoryPage(dwg, idx.directoryMaxDepth)

	bwg, bucketPN, err := idx.pager.NewPageWrite()
	if err != nil {
		dwg.Release()
		return InvalidPageID, err
	}
	initBucketPage[K, V](bwg, idx.bucketMaxSize, idx.caps.KeyCodec, idx.caps.ValCodec)
	bwg.Release()

	dir.SetBucketPageID(dwg, 0, PageID(bucketPN))
	dir.SetLocalDepth(dwg, 0, 0)
	dwg.Release()

	header.SetDirPageID(hwg, slot, PageID(dirPN))
	return PageID(dirPN), nil
}

// GetValue returns the value stored under key, if present.
func (idx *HashIndex[K, V]) GetValue(key K) (V, bool, error) {
	var zero V
	hash := idx.caps.Hash(key)

	hrg, err := idx.pager.FetchPageRead(RootPageID)
	if err != nil {
		return zero, false, err
	}
	header := openHeaderPage(hrg.Data())
	slot := header.HashToDirectoryIndex(hash)
	dirID := header.GetDirPageID(slot)
	if dirID == InvalidPageID {
		hrg.Release()
		return zero, false, nil
	}

	drg, err := idx.pager.FetchPageRead(int64(dirID))
	hrg.Release()
	if err != nil {
		return zero, false, err
	}
	dir := openDirectoryPage(drg.Data())
	bucketSlot := dir.HashToBucketIndex(hash)
	bucketID := dir.GetBucketPageID(bucketSlot)

	brg, err := idx.pager.FetchPageRead(int64(bucketID))
	drg.Release()
	if err != nil {
		return zero, false, err
	}
	defer brg.Release()
	bucket := openBucketPage[K, V](brg.Data(), idx.caps.KeyCodec, idx.caps.ValCodec)
	value, found := bucket.Lookup(key, idx.caps.Equal)
	return value, found, nil
}

// Insert adds (key, value), splitting buckets and doubling the directory as
// needed. Reports whether the entry was actually added: false if the key
// already exists, or if the directory is already at its maximum depth and
// the target bucket remains full after every possible split.
func (idx *HashIndex[K, V]) Insert(key K, value V) (bool, error) {
	hash := idx.caps.Hash(key)

	dirID, err := idx.ensureDirectory(hash)
	if err != nil {
		return false, err
	}

	dwg, err := idx.pager.FetchPageWrite(int64(dirID))
	if err != nil {
		return false, err
	}
	defer dwg.Release()
	dir := openDirectoryPage(dwg.Data())

	for {
		bucketSlot := dir.HashToBucketIndex(hash)
		bucketID := dir.GetBucketPageID(bucketSlot)
		bwg, err := idx.pager.FetchPageWrite(int64(bucketID))
		if err != nil {
			return false, err
		}
		bucket := openBucketPage[K, V](bwg.Data(), idx.caps.KeyCodec, idx.caps.ValCodec)

		if _, found := bucket.Lookup(key, idx.caps.Equal); found {
			bwg.Release()
			return false, nil
		}
		if !bucket.IsFull() {
			bucket.Insert(bwg, key, value)
			bwg.Release()
			return true, nil
		}

		saturated, err := idx.split(dwg, dir, bucketSlot, bwg, bucket)
		bwg.Release()
		if err != nil {
			return false, err
		}
		if saturated {
			return false, nil
		}
		// The bucket this key hashes to may have changed; loop and recompute.
	}
}

// doubleDirectory increments global depth, duplicating the live prefix of
// slots into the newly live second half.
func (idx *HashIndex[K, V]) doubleDirectory(dwg *pager.WriteGuard, dir *DirectoryPage) {
	oldGlobal := dir.GetGlobalDepth()
	half := numSlots(oldGlobal)
	for i := int64(0); i < half; i++ {
		dir.SetBucketPageID(dwg, i+half, dir.GetBucketPageID(i))
		dir.SetLocalDepth(dwg, i+half, dir.GetLocalDepth(i))
	}
	dir.SetGlobalDepth(dwg, oldGlobal+1)
}

// split handles a full bucket at bucketSlot during Insert: it allocates a
// split image bucket, re-points every directory slot that aliased the old
// bucket, rehashes the old bucket's entries between the two, and recurses if
// either side is still full. Returns true only if bucketSlot's bucket cannot
// be split at all because the directory is at its max depth and the bucket's
// local depth has caught up to it - Insert must then report failure rather
// than loop forever.
func (idx *HashIndex[K, V]) split(dwg *pager.WriteGuard, dir *DirectoryPage, bucketSlot int64, bwg *pager.WriteGuard, bucket *BucketPage[K, V]) (bool, error) {
	localDepth := dir.GetLocalDepth(bucketSlot)
	if localDepth == dir.GetGlobalDepth() {
		if dir.GetGlobalDepth() == dir.GetMaxDepth() {
			return true, nil
		}
		idx.doubleDirectory(dwg, dir)
	}

	newLocalDepth := localDepth + 1
	imageWG, imagePN, err := idx.pager.NewPageWrite()
	if err != nil {
		return false, err
	}
	defer imageWG.Release()
	image := initBucketPage[K, V](imageWG, bucket.MaxSize(), idx.caps.KeyCodec, idx.caps.ValCodec)
	imagePageID := PageID(imagePN)

	splitBit := int64(1) << uint(newLocalDepth-1)
	lowMask := splitBit - 1
	groupBits := bucketSlot & lowMask
	numSlotsLive := numSlots(dir.GetGlobalDepth())
	for i := int64(0); i < numSlotsLive; i++ {
		if i&lowMask != groupBits {
			continue
		}
		dir.SetLocalDepth(dwg, i, newLocalDepth)
		if i&splitBit != 0 {
			dir.SetBucketPageID(dwg, i, imagePageID)
		}
	}

	entries := bucket.Entries()
	bucket.Reset(bwg)
	for _, e := range entries {
		if idx.caps.Hash(e.Key)&uint64(splitBit) != 0 {
			image.Insert(imageWG, e.Key, e.Value)
		} else {
			bucket.Insert(bwg, e.Key, e.Value)
		}
	}

	// A recursive split that hits max depth is not reported: the key may
	// belong in the other, non-full half, and Insert's loop rechecks it.
	if bucket.IsFull() {
		if _, err := idx.split(dwg, dir, bucketSlot, bwg, bucket); err != nil {
			return false, err
		}
	} else if image.IsFull() {
		if _, err := idx.split(dwg, dir, bucketSlot|splitBit, imageWG, image); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Remove deletes the entry for key, merging its bucket into its split image
// (and repeatedly halving the directory) if that leaves the bucket empty.
// Reports whether a matching entry was found.
func (idx *HashIndex[K, V]) Remove(key K) (bool, error) {
	hash := idx.caps.Hash(key)

	hrg, err := idx.pager.FetchPageRead(RootPageID)
	if err != nil {
		return false, err
	}
	header := openHeaderPage(hrg.Data())
	slot := header.HashToDirectoryIndex(hash)
	dirID := header.GetDirPageID(slot)
	hrg.Release()
	if dirID == InvalidPageID {
		return false, nil
	}

	dwg, err := idx.pager.FetchPageWrite(int64(dirID))
	if err != nil {
		return false, err
	}
	defer dwg.Release()
	dir := openDirectoryPage(dwg.Data())

	bucketSlot := dir.HashToBucketIndex(hash)
	bucketID := dir.GetBucketPageID(bucketSlot)
	bwg, err := idx.pager.FetchPageWrite(int64(bucketID))
	if err != nil {
		return false, err
	}
	bucket := openBucketPage[K, V](bwg.Data(), idx.caps.KeyCodec, idx.caps.ValCodec)

	if !bucket.Remove(bwg, key, idx.caps.Equal) {
		bwg.Release()
		return false, nil
	}

	if bucket.IsEmpty() {
		if err := idx.tryMerge(dwg, dir, bucketSlot, bwg, bucket); err != nil {
			return false, err
		}
	} else {
		bwg.Release()
	}
	return true, nil
}

// tryMerge implements the merge cascade following a Remove that empties a
// bucket. It always releases bwg, whether or not a merge actually happens.
func (idx *HashIndex[K, V]) tryMerge(dwg *pager.WriteGuard, dir *DirectoryPage, bucketSlot int64, bwg *pager.WriteGuard, bucket *BucketPage[K, V]) error {
	localDepth := dir.GetLocalDepth(bucketSlot)
	if localDepth == 0 {
		bwg.Release()
		return nil
	}

	imageSlot := dir.GetSplitImageIndex(bucketSlot)
	if dir.GetLocalDepth(imageSlot) != localDepth {
		bwg.Release()
		return nil // the image was itself split further; merging now would break I2
	}

	emptyPageID := dir.GetBucketPageID(bucketSlot)
	imageID := dir.GetBucketPageID(imageSlot)
	bwg.Release()
	if err := idx.pager.DeletePage(int64(emptyPageID)); err != nil {
		return err
	}

	newLocalDepth := localDepth - 1
	lowMask := numSlots(newLocalDepth) - 1
	matchBits := bucketSlot & lowMask
	numSlotsLive := numSlots(dir.GetGlobalDepth())
	for i := int64(0); i < numSlotsLive; i++ {
		if i&lowMask != matchBits {
			continue
		}
		dir.SetBucketPageID(dwg, i, imageID)
		dir.SetLocalDepth(dwg, i, newLocalDepth)
	}

	idx.tryHalve(dwg, dir)

	imgWG, err := idx.pager.FetchPageWrite(int64(imageID))
	if err != nil {
		return err
	}
	image := openBucketPage[K, V](imgWG.Data(), idx.caps.KeyCodec, idx.caps.ValCodec)
	if image.IsEmpty() {
		// Halving may have left bucketSlot past the live prefix; its low
		// globalDepth bits name a live slot in the same merged group.
		liveSlot := bucketSlot & (numSlots(dir.GetGlobalDepth()) - 1)
		return idx.tryMerge(dwg, dir, liveSlot, imgWG, image)
	}
	imgWG.Release()
	return nil
}

// tryHalve repeatedly decrements global depth while every live slot's local
// depth stays strictly below it.
func (idx *HashIndex[K, V]) tryHalve(dwg *pager.WriteGuard, dir *DirectoryPage) {
	for dir.GetGlobalDepth() > 0 {
		liveCount := numSlots(dir.GetGlobalDepth())
		maxLocal := int64(0)
		for i := int64(0); i < liveCount; i++ {
			if d := dir.GetLocalDepth(i); d > maxLocal {
				maxLocal = d
			}
		}
		if maxLocal >= dir.GetGlobalDepth() {
			break
		}
		dir.SetGlobalDepth(dwg, dir.GetGlobalDepth()-1)
	}
}

package hash

import (
	"fmt"
	"io"
	"path/filepath"

	"dinodb/pkg/config"
	"dinodb/pkg/pager"
)

// OpenTable opens (or creates) an int64-keyed, int64-valued hash index backed
// by a file at filename, using the default xxHash-based capability set, the
// depth bounds from pkg/config, and a buffer pool of config.MaxPagesInBuffer
// frames. This is the common case the dinodb REPL and stress tool drive
// directly.
func OpenTable(filename string) (*HashIndex[int64, int64], error) {
	bp, err := pager.New(filename)
	if err != nil {
		return nil, err
	}
	return openTableOn(filename, bp)
}

// OpenTableWithCapacity is OpenTable with an explicitly sized buffer pool,
// for exercising directory growth/shrinkage under eviction pressure a
// default-sized pool wouldn't trigger.
func OpenTableWithCapacity(filename string, numFrames int) (*HashIndex[int64, int64], error) {
	bp, err := pager.NewSized(filename, numFrames)
	if err != nil {
		return nil, err
	}
	return openTableOn(filename, bp)
}

func openTableOn(filename string, bp *pager.Pager) (*HashIndex[int64, int64], error) {
	caps := Int64Capabilities()
	bucketMaxSize := BucketMaxSizeFor(caps.KeyCodec.Size(), caps.ValCodec.Size())
	idx, err := OpenHashIndex(filepath.Base(filename), bp, caps, config.DefaultHeaderMaxDepth, config.DefaultDirectoryMaxDepth, bucketMaxSize)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// PrintPN writes the raw contents of the page at pagenum to w, decoding it as
// a header, directory, or bucket page depending on which tier it belongs to.
// Meant for interactive debugging via the hash_print_pn REPL command, not a
// stable on-disk format.
func (idx *HashIndex[K, V]) PrintPN(pagenum int64, w io.Writer) error {
	rg, err := idx.pager.FetchPageRead(pagenum)
	if err != nil {
		return err
	}
	defer rg.Release()

	if pagenum == RootPageID {
		header := openHeaderPage(rg.Data())
		fmt.Fprintf(w, "header page (max depth %d):\n", header.GetMaxDepth())
		for slot := int64(0); slot < numSlots(header.GetMaxDepth()); slot++ {
			if id := header.GetDirPageID(slot); id != InvalidPageID {
				fmt.Fprintf(w, "  slot %d -> directory page %d\n", slot, id)
			}
		}
		return nil
	}

	// A page is either a directory or a bucket; try directory fields first and
	// fall back to treating it as a bucket if they look nonsensical.
	dir := openDirectoryPage(rg.Data())
	if dir.GetMaxDepth() == idx.directoryMaxDepth && dir.GetGlobalDepth() <= dir.GetMaxDepth() {
		fmt.Fprintf(w, "directory page (global depth %d / max %d):\n", dir.GetGlobalDepth(), dir.GetMaxDepth())
		for slot := int64(0); slot < numSlots(dir.GetGlobalDepth()); slot++ {
			fmt.Fprintf(w, "  slot %d -> bucket page %d (local depth %d)\n", slot, dir.GetBucketPageID(slot), dir.GetLocalDepth(slot))
		}
		return nil
	}

	bucket := openBucketPage[K, V](rg.Data(), idx.caps.KeyCodec, idx.caps.ValCodec)
	bucket.Print(w)
	return nil
}

// PrintHT writes a full top-to-bottom dump of the index (header, every
// directory, every bucket) to w.
func (idx *HashIndex[K, V]) PrintHT(w io.Writer) error {
	hrg, err := idx.pager.FetchPageRead(RootPageID)
	if err != nil {
		return err
	}
	header := openHeaderPage(hrg.Data())
	maxDepth := header.GetMaxDepth()
	hrg.Release()

	fmt.Fprintf(w, "header (max depth %d):\n", maxDepth)
	for hSlot := int64(0); hSlot < numSlots(maxDepth); hSlot++ {
		hrg, err := idx.pager.FetchPageRead(RootPageID)
		if err != nil {
			return err
		}
		dirID := openHeaderPage(hrg.Data()).GetDirPageID(hSlot)
		hrg.Release()
		if dirID == InvalidPageID {
			continue
		}

		drg, err := idx.pager.FetchPageRead(int64(dirID))
		if err != nil {
			return err
		}
		dir := openDirectoryPage(drg.Data())
		globalDepth := dir.GetGlobalDepth()
		fmt.Fprintf(w, "  directory %d (header slot %d, global depth %d):\n", dirID, hSlot, globalDepth)
		for slot := int64(0); slot < numSlots(globalDepth); slot++ {
			bucketID := dir.GetBucketPageID(slot)
			localDepth := dir.GetLocalDepth(slot)
			drg.Release()

			brg, err := idx.pager.FetchPageRead(int64(bucketID))
			if err != nil {
				return err
			}
			bucket := openBucketPage[K, V](brg.Data(), idx.caps.KeyCodec, idx.caps.ValCodec)
			fmt.Fprintf(w, "    slot %d, bucket %d (local depth %d): ", slot, bucketID, localDepth)
			bucket.Print(w)
			brg.Release()

			drg, err = idx.pager.FetchPageRead(int64(dirID))
			if err != nil {
				return err
			}
			dir = openDirectoryPage(drg.Data())
		}
		drg.Release()
	}
	return nil
}

package hash

import "dinodb/pkg/pager"

// PAGESIZE mirrors the pager's fixed page size, for layout arithmetic local
// to this package.
const PAGESIZE int64 = pager.Pagesize

// PageID identifies a page within a hash index's backing pager. A dedicated,
// compact (4-byte) type, rather than the pager's own int64 page numbers,
// keeps the header and directory page layouts small enough that even the
// deepest supported depth fits on a single page.
type PageID int32

// InvalidPageID marks an empty header or directory slot: one that has never
// had a directory or bucket allocated for it.
const InvalidPageID PageID = -1

const pageIDSize = 4 // bytes per PageID on disk

// RootPageID is the fixed page number of the index's header page.
const RootPageID int64 = 0

// numSlots returns how many directory (or header) slots a page of the given
// depth addresses.
func numSlots(depth int64) int64 {
	return int64(1) << uint(depth)
}

// BucketMaxSizeFor returns how many (key, value) entries fit in a bucket page
// whose keys and values are keySize and valSize bytes wide, respectively.
func BucketMaxSizeFor(keySize, valSize int) int64 {
	return (PAGESIZE - bucketHeaderSize) / int64(keySize+valSize)
}

package hash

import (
	"encoding/binary"

	"dinodb/pkg/pager"
)

const (
	dirMaxDepthOffset    = 0
	dirMaxDepthSize      = 4
	dirGlobalDepthOffset = dirMaxDepthOffset + dirMaxDepthSize
	dirGlobalDepthSize   = 4
	dirBucketIDsOffset   = dirGlobalDepthOffset + dirGlobalDepthSize
)

// DirectoryPage maps the low globalDepth bits of a key's hash to one of its
// bucket pages, and tracks each slot's local depth: how many low bits of the
// hash that bucket alone actually discriminates on.
type DirectoryPage struct {
	maxDepth    int64
	globalDepth int64
	data        []byte
}

func dirLocalDepthsOffset(maxDepth int64) int64 {
	return dirBucketIDsOffset + numSlots(maxDepth)*pageIDSize
}

func dirBucketIDOffset(slot int64) int64 {
	return dirBucketIDsOffset + slot*pageIDSize
}

func dirLocalDepthOffset(maxDepth, slot int64) int64 {
	return dirLocalDepthsOffset(maxDepth) + slot
}

// initDirectoryPage formats a freshly allocated page as an empty directory:
// global depth 0, every slot InvalidPageID with local depth 0.
func initDirectoryPage(wg *pager.WriteGuard, maxDepth int64) *DirectoryPage {
	d := &DirectoryPage{maxDepth: maxDepth, globalDepth: 0, data: wg.Data()}

	mdBuf := make([]byte, dirMaxDepthSize)
	binary.LittleEndian.PutUint32(mdBuf, uint32(maxDepth))
	wg.Update(mdBuf, dirMaxDepthOffset, dirMaxDepthSize)

	gdBuf := make([]byte, dirGlobalDepthSize)
	binary.LittleEndian.PutUint32(gdBuf, 0)
	wg.Update(gdBuf, dirGlobalDepthOffset, dirGlobalDepthSize)

	idBuf := make([]byte, pageIDSize)
	binary.LittleEndian.PutUint32(idBuf, uint32(InvalidPageID))
	for slot := int64(0); slot < numSlots(maxDepth); slot++ {
		wg.Update(idBuf, dirBucketIDOffset(slot), pageIDSize)
		wg.Update([]byte{0}, dirLocalDepthOffset(maxDepth, slot), 1)
	}
	return d
}

// openDirectoryPage decodes an existing directory page's cached depths from
// its raw bytes.
func openDirectoryPage(data []byte) *DirectoryPage {
	maxDepth := int64(binary.LittleEndian.Uint32(data[dirMaxDepthOffset : dirMaxDepthOffset+dirMaxDepthSize]))
	globalDepth := int64(binary.LittleEndian.Uint32(data[dirGlobalDepthOffset : dirGlobalDepthOffset+dirGlobalDepthSize]))
	return &DirectoryPage{maxDepth: maxDepth, globalDepth: globalDepth, data: data}
}

// GetMaxDepth returns the directory's fixed capacity bound.
func (d *DirectoryPage) GetMaxDepth() int64 {
	return d.maxDepth
}

// GetGlobalDepth returns how many low hash bits currently select a slot.
func (d *DirectoryPage) GetGlobalDepth() int64 {
	return d.globalDepth
}

// SetGlobalDepth updates the directory's global depth.
func (d *DirectoryPage) SetGlobalDepth(wg *pager.WriteGuard, depth int64) {
	d.globalDepth = depth
	buf := make([]byte, dirGlobalDepthSize)
	binary.LittleEndian.PutUint32(buf, uint32(depth))
	wg.Update(buf, dirGlobalDepthOffset, dirGlobalDepthSize)
}

// HashToBucketIndex returns the slot selected by the low globalDepth bits of
// hash.
func (d *DirectoryPage) HashToBucketIndex(hash uint64) int64 {
	if d.globalDepth == 0 {
		return 0
	}
	return int64(hash & (uint64(1)<<uint(d.globalDepth) - 1))
}

// GetBucketPageID returns the bucket page id stored at the given slot.
func (d *DirectoryPage) GetBucketPageID(slot int64) PageID {
	off := dirBucketIDOffset(slot)
	return PageID(binary.LittleEndian.Uint32(d.data[off : off+pageIDSize]))
}

// SetBucketPageID points slot at a (possibly new) bucket page.
func (d *DirectoryPage) SetBucketPageID(wg *pager.WriteGuard, slot int64, id PageID) {
	buf := make([]byte, pageIDSize)
	binary.LittleEndian.PutUint32(buf, uint32(id))
	wg.Update(buf, dirBucketIDOffset(slot), pageIDSize)
}

// GetLocalDepth returns the local depth of the bucket at the given slot.
func (d *DirectoryPage) GetLocalDepth(slot int64) int64 {
	return int64(d.data[dirLocalDepthOffset(d.maxDepth, slot)])
}

// SetLocalDepth updates the local depth of the bucket at the given slot.
func (d *DirectoryPage) SetLocalDepth(wg *pager.WriteGuard, slot int64, depth int64) {
	wg.Update([]byte{byte(depth)}, dirLocalDepthOffset(d.maxDepth, slot), 1)
}

// GetSplitImageIndex returns the sibling slot that a split of the bucket at
// slot would produce, given its current local depth. Only meaningful when
// local depth is at least 1.
func (d *DirectoryPage) GetSplitImageIndex(slot int64) int64 {
	localDepth := d.GetLocalDepth(slot)
	return slot ^ (int64(1) << uint(localDepth-1))
}

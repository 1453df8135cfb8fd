package hash

import (
	"encoding/binary"

	"dinodb/pkg/pager"
)

const (
	headerDepthOffset = 0
	headerDepthSize   = 4
	headerSlotsOffset = headerDepthOffset + headerDepthSize
)

// MaxHeaderSlots is the largest number of directory slots a header page of
// pager.Pagesize bytes can address.
var MaxHeaderSlots = (PAGESIZE - headerSlotsOffset) / pageIDSize

// HeaderPage fans the top bits of a key's hash out to a directory page id.
// Its max depth is fixed at creation and never changes; only its slots fill
// in over time, as directories are lazily allocated.
type HeaderPage struct {
	maxDepth int64
	data     []byte
}

func headerSlotOffset(slot int64) int64 {
	return headerSlotsOffset + slot*pageIDSize
}

// initHeaderPage formats a freshly allocated page as an empty header with the
// given max depth: every slot starts out InvalidPageID.
func initHeaderPage(wg *pager.WriteGuard, maxDepth int64) *HeaderPage {
	h := &HeaderPage{maxDepth: maxDepth, data: wg.Data()}

	depthBuf := make([]byte, headerDepthSize)
	binary.LittleEndian.PutUint32(depthBuf, uint32(maxDepth))
	wg.Update(depthBuf, headerDepthOffset, headerDepthSize)

	idBuf := make([]byte, pageIDSize)
	binary.LittleEndian.PutUint32(idBuf, uint32(InvalidPageID))
	for slot := int64(0); slot < numSlots(maxDepth); slot++ {
		wg.Update(idBuf, headerSlotOffset(slot), pageIDSize)
	}
	return h
}

// openHeaderPage decodes an existing header page's cached max depth from its
// raw bytes.
func openHeaderPage(data []byte) *HeaderPage {
	maxDepth := int64(binary.LittleEndian.Uint32(data[headerDepthOffset : headerDepthOffset+headerDepthSize]))
	return &HeaderPage{maxDepth: maxDepth, data: data}
}

// GetMaxDepth returns the header's fixed fan-out depth.
func (h *HeaderPage) GetMaxDepth() int64 {
	return h.maxDepth
}

// HashToDirectoryIndex returns the header slot selected by the top maxDepth
// bits of hash.
func (h *HeaderPage) HashToDirectoryIndex(hash uint64) int64 {
	if h.maxDepth == 0 {
		return 0
	}
	return int64(hash >> uint(64-h.maxDepth))
}

// GetDirPageID returns the directory page id stored at the given slot, or
// InvalidPageID if no directory has been allocated for it yet.
func (h *HeaderPage) GetDirPageID(slot int64) PageID {
	off := headerSlotOffset(slot)
	return PageID(binary.LittleEndian.Uint32(h.data[off : off+pageIDSize]))
}

// SetDirPageID records that slot's directory now lives at id.
func (h *HeaderPage) SetDirPageID(wg *pager.WriteGuard, slot int64, id PageID) {
	buf := make([]byte, pageIDSize)
	binary.LittleEndian.PutUint32(buf, uint32(id))
	wg.Update(buf, headerSlotOffset(slot), pageIDSize)
}

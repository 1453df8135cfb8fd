package hash

import (
	"encoding/binary"
	"fmt"
	"io"

	"dinodb/pkg/entry"
	"dinodb/pkg/pager"
)

const (
	bucketSizeOffset    = 0
	bucketSizeSize      = 4
	bucketMaxSizeOffset = bucketSizeOffset + bucketSizeSize
	bucketMaxSizeSize   = 4
	bucketHeaderSize    = bucketMaxSizeOffset + bucketMaxSizeSize
)

// BucketPage holds the actual (key, value) entries at the leaf tier of a hash
// index. Entries are stored unsorted, appended on insert and compacted on
// remove; lookup is a linear scan, since a bucket is sized to stay small.
type BucketPage[K any, V any] struct {
	size     int64
	maxSize  int64
	keyCodec Codec[K]
	valCodec Codec[V]
	data     []byte
}

// initBucketPage formats a freshly allocated page as an empty bucket able to
// hold up to maxSize entries.
func initBucketPage[K any, V any](wg *pager.WriteGuard, maxSize int64, keyCodec Codec[K], valCodec Codec[V]) *BucketPage[K, V] {
	b := &BucketPage[K, V]{size: 0, maxSize: maxSize, keyCodec: keyCodec, valCodec: valCodec, data: wg.Data()}

	sizeBuf := make([]byte, bucketSizeSize)
	binary.LittleEndian.PutUint32(sizeBuf, 0)
	wg.Update(sizeBuf, bucketSizeOffset, bucketSizeSize)

	maxSizeBuf := make([]byte, bucketMaxSizeSize)
	binary.LittleEndian.PutUint32(maxSizeBuf, uint32(maxSize))
	wg.Update(maxSizeBuf, bucketMaxSizeOffset, bucketMaxSizeSize)
	return b
}

// openBucketPage decodes an existing bucket page's cached size from its raw
// bytes.
func openBucketPage[K any, V any](data []byte, keyCodec Codec[K], valCodec Codec[V]) *BucketPage[K, V] {
	size := int64(binary.LittleEndian.Uint32(data[bucketSizeOffset : bucketSizeOffset+bucketSizeSize]))
	maxSize := int64(binary.LittleEndian.Uint32(data[bucketMaxSizeOffset : bucketMaxSizeOffset+bucketMaxSizeSize]))
	return &BucketPage[K, V]{size: size, maxSize: maxSize, keyCodec: keyCodec, valCodec: valCodec, data: data}
}

func (b *BucketPage[K, V]) entrySize() int64 {
	return int64(b.keyCodec.Size() + b.valCodec.Size())
}

func (b *BucketPage[K, V]) entryOffset(i int64) int64 {
	return bucketHeaderSize + i*b.entrySize()
}

// Size returns the number of entries currently stored in the bucket.
func (b *BucketPage[K, V]) Size() int64 { return b.size }

// MaxSize returns the bucket's entry capacity.
func (b *BucketPage[K, V]) MaxSize() int64 { return b.maxSize }

// IsFull reports whether the bucket has no room for another entry.
func (b *BucketPage[K, V]) IsFull() bool { return b.size >= b.maxSize }

// IsEmpty reports whether the bucket holds no entries.
func (b *BucketPage[K, V]) IsEmpty() bool { return b.size == 0 }

func (b *BucketPage[K, V]) getKeyAt(i int64) K {
	off := b.entryOffset(i)
	return b.keyCodec.Decode(b.data[off : off+int64(b.keyCodec.Size())])
}

func (b *BucketPage[K, V]) getValueAt(i int64) V {
	off := b.entryOffset(i) + int64(b.keyCodec.Size())
	return b.valCodec.Decode(b.data[off : off+int64(b.valCodec.Size())])
}

func (b *BucketPage[K, V]) getEntry(i int64) entry.Entry[K, V] {
	return entry.New(b.getKeyAt(i), b.getValueAt(i))
}

func (b *BucketPage[K, V]) writeEntry(wg *pager.WriteGuard, i int64, key K, value V) {
	buf := make([]byte, b.entrySize())
	b.keyCodec.Encode(key, buf[:b.keyCodec.Size()])
	b.valCodec.Encode(value, buf[b.keyCodec.Size():])
	wg.Update(buf, b.entryOffset(i), b.entrySize())
}

func (b *BucketPage[K, V]) setSize(wg *pager.WriteGuard, size int64) {
	b.size = size
	buf := make([]byte, bucketSizeSize)
	binary.LittleEndian.PutUint32(buf, uint32(size))
	wg.Update(buf, bucketSizeOffset, bucketSizeSize)
}

// Lookup returns the value stored under key, if present.
func (b *BucketPage[K, V]) Lookup(key K, eq EqualFunc[K]) (V, bool) {
	for i := int64(0); i < b.size; i++ {
		if eq(b.getKeyAt(i), key) {
			return b.getValueAt(i), true
		}
	}
	var zero V
	return zero, false
}

// Insert appends (key, value) to the bucket. The caller is responsible for
// having already checked that the key is absent and that the bucket isn't
// full.
func (b *BucketPage[K, V]) Insert(wg *pager.WriteGuard, key K, value V) {
	b.writeEntry(wg, b.size, key, value)
	b.setSize(wg, b.size+1)
}

// Remove deletes the entry with the given key, compacting the live prefix
// over the gap it leaves. Reports whether a matching entry was found.
func (b *BucketPage[K, V]) Remove(wg *pager.WriteGuard, key K, eq EqualFunc[K]) bool {
	idx := int64(-1)
	for i := int64(0); i < b.size; i++ {
		if eq(b.getKeyAt(i), key) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	for i := idx; i < b.size-1; i++ {
		b.writeEntry(wg, i, b.getKeyAt(i+1), b.getValueAt(i+1))
	}
	b.setSize(wg, b.size-1)
	return true
}

// Reset empties the bucket without changing its max size, for reuse as one
// half of a split.
func (b *BucketPage[K, V]) Reset(wg *pager.WriteGuard) {
	b.setSize(wg, 0)
}

// Entries returns every live entry in the bucket, in storage order.
func (b *BucketPage[K, V]) Entries() []entry.Entry[K, V] {
	out := make([]entry.Entry[K, V], 0, b.size)
	for i := int64(0); i < b.size; i++ {
		out = append(out, b.getEntry(i))
	}
	return out
}

// Print writes the bucket's entries to w.
func (b *BucketPage[K, V]) Print(w io.Writer) {
	fmt.Fprintf(w, "size: %d/%d\nentries: ", b.size, b.maxSize)
	for i := int64(0); i < b.size; i++ {
		b.getEntry(i).Print(w)
	}
	io.WriteString(w, "\n")
}

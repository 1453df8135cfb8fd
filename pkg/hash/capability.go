package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

// Codec marshals and unmarshals fixed-size values of type T to and from a
// byte buffer exactly Size() bytes wide. This is the index's serialization
// capability: every key and value stored on a bucket page goes through one.
type Codec[T any] interface {
	Size() int
	Encode(value T, dst []byte)
	Decode(src []byte) T
}

// EqualFunc reports whether two keys are equal. Extendible hashing has no
// notion of range, so the index only ever needs equality, never an order.
type EqualFunc[K any] func(a, b K) bool

// HashFunc computes a deterministic 64-bit digest of a key. Only a prefix of
// the returned bits is consulted at the header and directory tiers.
type HashFunc[K any] func(key K) uint64

// Capabilities bundles the pluggable serialization, hashing, and equality
// traits a HashIndex needs for a given key/value type pair.
type Capabilities[K any, V any] struct {
	KeyCodec Codec[K]
	ValCodec Codec[V]
	Hash     HashFunc[K]
	Equal    EqualFunc[K]
}

// Int64Codec encodes an int64 key or value as 8 little-endian bytes.
type Int64Codec struct{}

func (Int64Codec) Size() int { return 8 }

func (Int64Codec) Encode(v int64, dst []byte) {
	binary.LittleEndian.PutUint64(dst, uint64(v))
}

func (Int64Codec) Decode(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

// UUIDCodec encodes a uuid.UUID as its native 16 bytes.
type UUIDCodec struct{}

func (UUIDCodec) Size() int { return 16 }

func (UUIDCodec) Encode(v uuid.UUID, dst []byte) {
	copy(dst, v[:])
}

func (UUIDCodec) Decode(src []byte) uuid.UUID {
	var u uuid.UUID
	copy(u[:], src[:16])
	return u
}

// EqualComparable returns an EqualFunc built from Go's native == operator,
// for any key type that supports it.
func EqualComparable[K comparable]() EqualFunc[K] {
	return func(a, b K) bool { return a == b }
}

// XXHash64 builds a HashFunc for key type K out of the xxHash digest of its
// codec-encoded bytes. A fresh scratch buffer is allocated per call: Hash is
// invoked outside any page latch, so concurrent callers must not share one.
func XXHash64[K any](codec Codec[K]) HashFunc[K] {
	size := codec.Size()
	return func(key K) uint64 {
		buf := make([]byte, size)
		codec.Encode(key, buf)
		return xxhash.Sum64(buf)
	}
}

// Murmur3Hash64 builds a HashFunc for key type K out of the MurmurHash3
// digest of its codec-encoded bytes. See XXHash64 for why the buffer isn't
// shared across calls.
func Murmur3Hash64[K any](codec Codec[K]) HashFunc[K] {
	size := codec.Size()
	return func(key K) uint64 {
		buf := make([]byte, size)
		codec.Encode(key, buf)
		return murmur3.Sum64(buf)
	}
}

// IdentityHash64 returns an int64 key itself as its hash. Spec scenarios that
// need to control exactly which directory slot a key lands in use this
// instead of XXHash64/Murmur3Hash64.
func IdentityHash64(key int64) uint64 {
	return uint64(key)
}

// Int64Capabilities returns the default capability set used by OpenTable:
// 8-byte int64 keys and values, xxHash-based hashing, native equality.
func Int64Capabilities() Capabilities[int64, int64] {
	codec := Int64Codec{}
	return Capabilities[int64, int64]{
		KeyCodec: codec,
		ValCodec: codec,
		Hash:     XXHash64[int64](codec),
		Equal:    EqualComparable[int64](),
	}
}

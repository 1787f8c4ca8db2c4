//go:build !tinygo

package mmio

import (
	"sync/atomic"
	"unsafe"
)

// There is no 8-bit atomic, so byte registers go through the containing
// aligned word.
func word(addr *uint8) (*uint32, uint) {
	off := uintptr(unsafe.Pointer(addr)) & 3
	return (*uint32)(unsafe.Add(unsafe.Pointer(addr), -int(off))), uint(off) * 8
}

func Load8(addr *uint8) uint8 {
	w, shift := word(addr)
	return uint8(atomic.LoadUint32(w) >> shift)
}

func Store8(addr *uint8, v uint8) {
	w, shift := word(addr)
	for {
		old := atomic.LoadUint32(w)
		new := old&^(0xff<<shift) | uint32(v)<<shift
		if atomic.CompareAndSwapUint32(w, old, new) {
			return
		}
	}
}

func Load32(addr *uint32) uint32     { return atomic.LoadUint32(addr) }
func Store32(addr *uint32, v uint32) { atomic.StoreUint32(addr, v) }
func Load64(addr *uint64) uint64     { return atomic.LoadUint64(addr) }
func Store64(addr *uint64, v uint64) { atomic.StoreUint64(addr, v) }

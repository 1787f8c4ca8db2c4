//go:build tinygo

package mmio

import "runtime/volatile"

func Load8(addr *uint8) uint8        { return volatile.LoadUint8(addr) }
func Store8(addr *uint8, v uint8)    { volatile.StoreUint8(addr, v) }
func Load32(addr *uint32) uint32     { return volatile.LoadUint32(addr) }
func Store32(addr *uint32, v uint32) { volatile.StoreUint32(addr, v) }
func Load64(addr *uint64) uint64     { return volatile.LoadUint64(addr) }
func Store64(addr *uint64, v uint64) { volatile.StoreUint64(addr, v) }

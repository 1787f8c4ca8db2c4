// Package mmio performs the volatile loads and stores used to drive
// memory-mapped peripherals.
//
// With TinyGo the accesses go through runtime/volatile. On the host they are
// atomic accesses to ordinary memory, which lets tests stand a Go array in for
// a register file.
package mmio

import "unsafe"

// Reg32 returns the address of the 32-bit register at base+offset.
func Reg32(base unsafe.Pointer, offset uintptr) *uint32 {
	return (*uint32)(unsafe.Add(base, offset))
}

// Reg64 returns the address of the 64-bit register at base+offset.
func Reg64(base unsafe.Pointer, offset uintptr) *uint64 {
	return (*uint64)(unsafe.Add(base, offset))
}

// Reg8 returns the address of the 8-bit register at base+offset.
func Reg8(base unsafe.Pointer, offset uintptr) *uint8 {
	return (*uint8)(unsafe.Add(base, offset))
}

//go:build tinygo.riscv64

package riscv

import (
	"device/riscv"
	_ "unsafe"
)

// CSR accesses must be emitted with the register number as an immediate, so
// every register gets its own set of inline assembly snippets. AsmFull only
// accepts a map literal for its arguments.
type csr struct {
	get       func() uintptr
	set       func(uintptr)
	setBits   func(uintptr) uintptr
	clearBits func(uintptr) uintptr
}

func (c *csr) Get() uintptr                   { return c.get() }
func (c *csr) Set(value uintptr)              { c.set(value) }
func (c *csr) SetBits(mask uintptr) uintptr   { return c.setBits(mask) }
func (c *csr) ClearBits(mask uintptr) uintptr { return c.clearBits(mask) }

var (
	mstatus = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, mstatus", nil) },
		func(v uintptr) { riscv.AsmFull("csrw mstatus, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, mstatus, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, mstatus, {value}", map[string]interface{}{"value": v})
		},
	}
	mie = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, mie", nil) },
		func(v uintptr) { riscv.AsmFull("csrw mie, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, mie, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, mie, {value}", map[string]interface{}{"value": v})
		},
	}
	mip = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, mip", nil) },
		func(v uintptr) { riscv.AsmFull("csrw mip, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, mip, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, mip, {value}", map[string]interface{}{"value": v})
		},
	}
	mideleg = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, mideleg", nil) },
		func(v uintptr) { riscv.AsmFull("csrw mideleg, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, mideleg, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, mideleg, {value}", map[string]interface{}{"value": v})
		},
	}
	medeleg = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, medeleg", nil) },
		func(v uintptr) { riscv.AsmFull("csrw medeleg, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, medeleg, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, medeleg, {value}", map[string]interface{}{"value": v})
		},
	}
	mtvec = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, mtvec", nil) },
		func(v uintptr) { riscv.AsmFull("csrw mtvec, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, mtvec, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, mtvec, {value}", map[string]interface{}{"value": v})
		},
	}
	mscratch = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, mscratch", nil) },
		func(v uintptr) { riscv.AsmFull("csrw mscratch, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, mscratch, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, mscratch, {value}", map[string]interface{}{"value": v})
		},
	}
	mcause = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, mcause", nil) },
		func(v uintptr) { riscv.AsmFull("csrw mcause, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, mcause, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, mcause, {value}", map[string]interface{}{"value": v})
		},
	}
	mtval = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, mtval", nil) },
		func(v uintptr) { riscv.AsmFull("csrw mtval, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, mtval, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, mtval, {value}", map[string]interface{}{"value": v})
		},
	}
	pmpcfg0 = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, pmpcfg0", nil) },
		func(v uintptr) { riscv.AsmFull("csrw pmpcfg0, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, pmpcfg0, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, pmpcfg0, {value}", map[string]interface{}{"value": v})
		},
	}
	pmpaddr0 = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, pmpaddr0", nil) },
		func(v uintptr) { riscv.AsmFull("csrw pmpaddr0, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, pmpaddr0, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, pmpaddr0, {value}", map[string]interface{}{"value": v})
		},
	}
	stvec = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, stvec", nil) },
		func(v uintptr) { riscv.AsmFull("csrw stvec, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, stvec, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, stvec, {value}", map[string]interface{}{"value": v})
		},
	}
	scause = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, scause", nil) },
		func(v uintptr) { riscv.AsmFull("csrw scause, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, scause, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, scause, {value}", map[string]interface{}{"value": v})
		},
	}
	stval = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, stval", nil) },
		func(v uintptr) { riscv.AsmFull("csrw stval, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, stval, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, stval, {value}", map[string]interface{}{"value": v})
		},
	}
	sepc = &csr{
		func() uintptr { return riscv.AsmFull("csrr {}, sepc", nil) },
		func(v uintptr) { riscv.AsmFull("csrw sepc, {value}", map[string]interface{}{"value": v}) },
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrs {}, sepc, {value}", map[string]interface{}{"value": v})
		},
		func(v uintptr) uintptr {
			return riscv.AsmFull("csrrc {}, sepc, {value}", map[string]interface{}{"value": v})
		},
	}
)

// Implemented in targets/gosbi-trap.S.
//
//go:linkname loadVaddrU32 sbi_load_vaddr_u32
func loadVaddrU32(vaddr uintptr) uint32

//go:linkname loadVaddrU64 sbi_load_vaddr_u64
func loadVaddrU64(vaddr uintptr) uint64

type machine struct{}

func (machine) WaitForInterrupt() { riscv.Asm("wfi") }
func (machine) FenceI()           { riscv.Asm("fence.i") }
func (machine) SfenceVMA()        { riscv.Asm("sfence.vma") }

func (machine) LoadSupervisor32(vaddr uintptr) uint32 { return loadVaddrU32(vaddr) }
func (machine) LoadSupervisor64(vaddr uintptr) uint64 { return loadVaddrU64(vaddr) }

func (machine) Halt() {
	// Nothing may wake this hart up again.
	mie.Set(0)
	mstatus.ClearBits(MSTATUS_MIE)
	for {
		riscv.Asm("wfi")
	}
}

// Harts this binding supports. Secondary harts use their Hart before hart 0
// has run any initialization, so the table must not need a heap; TinyGo
// evaluates init at compile time and puts it in .data.
const maxHarts = 8

var harts [maxHarts]Hart

func init() {
	for id := range harts {
		harts[id] = Hart{
			ID:       id,
			Mstatus:  mstatus,
			Mie:      mie,
			Mip:      mip,
			Mideleg:  mideleg,
			Medeleg:  medeleg,
			Mtvec:    mtvec,
			Mscratch: mscratch,
			Mcause:   mcause,
			Mtval:    mtval,
			Pmpcfg0:  pmpcfg0,
			Pmpaddr0: pmpaddr0,
			Stvec:    stvec,
			Scause:   scause,
			Stval:    stval,
			Sepc:     sepc,

			Instructions: machine{},
		}
	}
}

// Current returns the Hart bound to the CPU this code is running on.
func Current() *Hart {
	return &harts[riscv.AsmFull("csrr {}, mhartid", nil)]
}

//go:build !tinygo.riscv64

package trap

// Fake addresses, for tests that check which vector is installed.
const (
	fakeEarlyEntry  = 0x8000_0040
	fakeSteadyEntry = 0x8000_0080
	fakeStackBase   = 0x8010_0000
	fakeStackSize   = 0x4000
)

var (
	Early = Vector{
		name:  "early",
		entry: fakeEarlyEntry,
		stackTop: func(hart int) uintptr {
			return fakeStackBase + uintptr(hart+1)*fakeStackSize
		},
	}

	Steady = Vector{
		name:  "steady",
		entry: fakeSteadyEntry,
	}
)

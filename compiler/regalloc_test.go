package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegAllocGrowsMonotonicallyWithoutReuse(t *testing.T) {
	r := newRegAlloc()
	a := r.alloc()
	b := r.alloc()
	c := r.alloc()
	assert.Equal(t, uint8(0), a)
	assert.Equal(t, uint8(1), b)
	assert.Equal(t, uint8(2), c)
	assert.Equal(t, 3, r.registerCount())
}

func TestRegAllocReleaseReusesSmallestFreedRegister(t *testing.T) {
	r := newRegAlloc()
	a := r.alloc()
	b := r.alloc()
	_ = r.alloc()

	r.release(a)
	r.release(b)

	reused := r.alloc()
	assert.Equal(t, a, reused, "smallest freed register is reused before growing further")

	reused2 := r.alloc()
	assert.Equal(t, b, reused2)
}

func TestRegAllocReserveClaimsFixedIndexAndAdvancesHighWater(t *testing.T) {
	r := newRegAlloc()
	r.reserve(5)
	assert.Equal(t, 6, r.registerCount(), "reserving register 5 means 6 registers are in use (0..5)")

	next := r.alloc()
	assert.Equal(t, uint8(6), next, "alloc continues past a reserved high register")
}

func TestRegAllocPanicsPastMaxUsableRegister(t *testing.T) {
	r := newRegAlloc()
	r.used = 255 // simulate every usable register already claimed

	assert.Panics(t, func() {
		r.alloc()
	})
}

func TestFreeIfTempOnlyReleasesTemporaries(t *testing.T) {
	u := &unit{regs: newRegAlloc()}
	reg := u.regs.alloc()

	u.freeIfTemp(RegResult{Reg: reg, IsTemp: false})
	next := u.regs.alloc()
	require.NotEqual(t, reg, next, "a non-temp register must not be released")

	u.freeIfTemp(RegResult{Reg: next, IsTemp: true})
	reused := u.regs.alloc()
	assert.Equal(t, next, reused, "a temp register is released back to the free-list")
}

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeLookupWalksParentChainAndShadows(t *testing.T) {
	outer := newScope(nil)
	outer.define(&symbol{name: "x", reg: 1})

	inner := newScope(outer)
	inner.define(&symbol{name: "y", reg: 2})

	sym, ok := inner.lookup("x")
	require.True(t, ok)
	assert.Equal(t, uint8(1), sym.reg)

	inner.define(&symbol{name: "x", reg: 9})
	sym, ok = inner.lookup("x")
	require.True(t, ok)
	assert.Equal(t, uint8(9), sym.reg, "inner definition shadows the outer one")

	_, ok = outer.lookup("y")
	assert.False(t, ok, "outer scope cannot see a name defined in a child")
}

func TestResolveLocalExcludesUpvalues(t *testing.T) {
	s := newScope(nil)
	s.define(&symbol{name: "local", reg: 0})
	s.define(&symbol{name: "captured", isUpvalue: true, upvalIdx: 0})

	_, ok := s.resolveLocal("local")
	assert.True(t, ok)

	_, ok = s.resolveLocal("captured")
	assert.False(t, ok, "resolveLocal must not see names bound as upvalues")
}

func newTestUnit(parent *unit, name string) *unit {
	u := &unit{
		parent:     parent,
		regs:       newRegAlloc(),
		upvalIndex: make(map[string]int),
		name:       name,
	}
	u.top = newScope(nil)
	return u
}

func TestResolveUpvalueFindsParentLocal(t *testing.T) {
	parent := newTestUnit(nil, "outer")
	parentReg := parent.regs.alloc()
	parent.top.define(&symbol{name: "count", reg: parentReg, mutable: true})

	child := newTestUnit(parent, "inner")

	idx, ok := child.resolveUpvalue("count")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	require.Len(t, child.upvalues, 1)
	assert.True(t, child.upvalues[0].LocalToParent)
	assert.Equal(t, int(parentReg), child.upvalues[0].LookupIndex)
	assert.True(t, child.upvalues[0].Mutable)
}

func TestResolveUpvalueChainsThroughGrandparent(t *testing.T) {
	grandparent := newTestUnit(nil, "outermost")
	reg := grandparent.regs.alloc()
	grandparent.top.define(&symbol{name: "shared", reg: reg})

	parent := newTestUnit(grandparent, "middle")
	child := newTestUnit(parent, "innermost")

	idx, ok := child.resolveUpvalue("shared")
	require.True(t, ok)
	assert.False(t, child.upvalues[idx].LocalToParent, "grandchild reads through the parent's own upvalue slot, not the grandparent's register directly")

	require.Len(t, parent.upvalues, 1, "resolving through the chain also registers an upvalue on the intermediate unit")
}

func TestResolveUpvalueCachesRepeatedLookups(t *testing.T) {
	parent := newTestUnit(nil, "outer")
	reg := parent.regs.alloc()
	parent.top.define(&symbol{name: "x", reg: reg})

	child := newTestUnit(parent, "inner")
	first, _ := child.resolveUpvalue("x")
	second, _ := child.resolveUpvalue("x")
	assert.Equal(t, first, second)
	assert.Len(t, child.upvalues, 1, "a repeated resolution must not append a duplicate descriptor")
}

func TestResolveUpvalueFailsForUnknownName(t *testing.T) {
	parent := newTestUnit(nil, "outer")
	child := newTestUnit(parent, "inner")

	_, ok := child.resolveUpvalue("nope")
	assert.False(t, ok)
}

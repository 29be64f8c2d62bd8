package svalue_test

import (
	"testing"

	"github.com/amalgam-go/sbfds/svalue"
	"github.com/stretchr/testify/require"
)

func TestInternPoolRoundTrip(t *testing.T) {
	pool := svalue.NewInternPool()

	idA := pool.Intern("alpha")
	idB := pool.Intern("beta")
	idA2 := pool.Intern("alpha")
	require.Equal(t, idA, idA2, "interning the same string twice must return the same id")
	require.NotEqual(t, idA, idB)

	s, ok := pool.Lookup(idA)
	require.True(t, ok)
	require.Equal(t, "alpha", s)
	require.Equal(t, 2, pool.Len())
}

func TestInternPoolRefCounting(t *testing.T) {
	pool := svalue.NewInternPool()

	id := pool.Intern("gamma")
	pool.Intern("gamma") // second reference

	pool.Release(id)
	_, ok := pool.Lookup(id)
	require.True(t, ok, "entry should survive while a reference remains")

	pool.Release(id)
	_, ok = pool.Lookup(id)
	require.False(t, ok, "entry should be freed once refcount reaches zero")
}

func TestValueEqual(t *testing.T) {
	require.True(t, svalue.Num(1.5).Equal(svalue.Num(1.5)))
	require.False(t, svalue.Num(1.5).Equal(svalue.Num(2.5)))
	require.True(t, svalue.NullVal().Equal(svalue.NullVal()))
	require.False(t, svalue.Num(1).Equal(svalue.Str(1)))

	nan := svalue.Num(nanValue())
	require.True(t, nan.IsNullEquivalent())
	require.True(t, svalue.NullVal().IsNullEquivalent())
	require.False(t, svalue.Num(0).IsNullEquivalent())
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

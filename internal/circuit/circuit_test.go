package circuit

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HershLalwani/qlower/internal/engine"
	"github.com/HershLalwani/qlower/internal/ops"
)

func TestCircuitAllocationPassesThrough(t *testing.T) {
	rec := engine.NewRecorder(nil)
	c := New(rec)

	qs, err := c.AllocateQureg(3)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, qs[0].Register, qs[2].Register)
	assert.Equal(t, 3, rec.Count(ops.KindAllocate))

	q, err := c.AllocateQubit()
	require.NoError(t, err)
	assert.NotEqual(t, qs[0].Register, q.Register)
	assert.Equal(t, 3, q.ID)

	require.NoError(t, c.Deallocate(qs[1]))
	assert.Equal(t, []ops.Qubit{qs[0], qs[2], q}, c.Live())
	assert.Equal(t, 1, rec.Count(ops.KindDeallocate))

	err = c.Deallocate(qs[1])
	assert.True(t, errors.Is(err, ErrNotAllocated))

	_, err = c.AllocateQureg(0)
	assert.Error(t, err)
}

func TestCircuitControlScopes(t *testing.T) {
	rec := engine.NewRecorder(nil)
	c := New(rec)
	qs, err := c.AllocateQureg(4)
	require.NoError(t, err)
	rec.Reset()

	err = c.WithControl(qs[:1], func() error {
		if err := c.Apply(ops.X, qs[3]); err != nil {
			return err
		}
		exit := c.Control(qs[1])
		defer exit()
		if err := c.ApplyControlled(ops.Z, qs[2:3], qs[3]); err != nil {
			return err
		}
		return c.Measure(qs[2])
	})
	require.NoError(t, err)
	require.NoError(t, c.Apply(ops.H, qs[3]))

	cmds := rec.Commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, qs[:1], cmds[0].Controls())
	assert.Equal(t, qs[:3], cmds[1].Controls())
	assert.Empty(t, cmds[2].Controls(), "measurement is never controlled")
	assert.Empty(t, cmds[3].Controls(), "scopes closed")
}

func TestCircuitRejectsControlledTarget(t *testing.T) {
	rec := engine.NewRecorder(nil)
	c := New(rec)
	qs, err := c.AllocateQureg(2)
	require.NoError(t, err)
	rec.Reset()

	exit := c.Control(qs[0])
	err = c.Apply(ops.X, qs[0])
	exit()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ops.ErrMalformedCommand))
	assert.Empty(t, rec.Commands())
}

func TestCircuitRejectsForeignQubit(t *testing.T) {
	c := New(engine.Discard)
	foreign := ops.NewAllocator().Allocate(1)

	err := c.Apply(ops.H, foreign[0])
	assert.True(t, errors.Is(err, ErrNotAllocated))
}

func TestCircuitTagsAndFlush(t *testing.T) {
	rec := engine.NewRecorder(nil)
	c := New(rec)
	q, err := c.AllocateQubit()
	require.NoError(t, err)

	require.NoError(t, c.ApplyTagged(ops.T, []ops.Tag{"dirty"}, q))
	require.NoError(t, c.ApplyAll(ops.H, []ops.Qubit{q}))
	require.NoError(t, c.Flush())

	cmds := rec.Commands()
	require.Len(t, cmds, 4)
	assert.True(t, cmds[1].HasTag("dirty"))
	assert.Equal(t, ops.KindFlush, cmds[3].Gate().Kind())
}

func TestCircuitSharedAllocator(t *testing.T) {
	alloc := ops.NewAllocator()
	alloc.Allocate(5)
	c := New(engine.Discard, WithAllocator(alloc))

	q, err := c.AllocateQubit()
	require.NoError(t, err)
	assert.Equal(t, 5, q.ID)
	assert.Same(t, alloc, c.Allocator())
}

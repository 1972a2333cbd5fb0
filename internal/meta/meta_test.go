package meta

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HershLalwani/qlower/internal/ops"
)

func TestInjectorNestedScopesAccumulate(t *testing.T) {
	q := ops.NewAllocator().Allocate(4)
	var in Injector

	exitA := in.Enter(q[0])
	exitB := in.Enter(q[1])

	cmd, err := in.NewCommand(ops.X, q[3:], nil)
	require.NoError(t, err)
	assert.Equal(t, []ops.Qubit{q[0], q[1]}, cmd.Controls())
	assert.Equal(t, 2, in.Depth())

	exitB()
	cmd, err = in.NewCommand(ops.X, q[3:], q[2:3])
	require.NoError(t, err)
	assert.Equal(t, []ops.Qubit{q[0], q[2]}, cmd.Controls(), "own controls unioned with the active set")

	exitA()
	cmd, err = in.NewCommand(ops.X, q[3:], nil)
	require.NoError(t, err)
	assert.Empty(t, cmd.Controls())
	assert.Equal(t, 0, in.Depth())
}

func TestInjectorExitIsIdempotent(t *testing.T) {
	q := ops.NewAllocator().Allocate(2)
	var in Injector

	outer := in.Enter(q[0])
	inner := in.Enter(q[1])
	inner()
	inner()
	assert.Equal(t, 1, in.Depth(), "second exit must not pop the outer scope")
	outer()
	assert.Equal(t, 0, in.Depth())
}

func TestInjectorDoExitsOnError(t *testing.T) {
	q := ops.NewAllocator().Allocate(2)
	var in Injector
	boom := errors.New("boom")

	err := in.Do(q[:1], func() error {
		assert.Equal(t, 1, in.Depth())
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 0, in.Depth())

	assert.Panics(t, func() {
		_ = in.Do(q[:1], func() error { panic("rule bug") })
	})
	assert.Equal(t, 0, in.Depth(), "scope must be left while a panic unwinds")
}

func TestInjectorSkipsClassicalInstructions(t *testing.T) {
	q := ops.NewAllocator().Allocate(2)
	var in Injector
	exit := in.Enter(q[0])
	defer exit()

	cmd, err := in.NewCommand(ops.Measure, q[1:], nil)
	require.NoError(t, err)
	assert.Empty(t, cmd.Controls())
}

func TestInjectorRejectsControlledTarget(t *testing.T) {
	q := ops.NewAllocator().Allocate(2)
	var in Injector
	exit := in.Enter(q[0])
	defer exit()

	_, err := in.NewCommand(ops.H, q[:1], nil)
	assert.True(t, errors.Is(err, ops.ErrMalformedCommand))
}

func TestBuilderKeepsOuterControls(t *testing.T) {
	q := ops.NewAllocator().Allocate(4)
	b := NewBuilder(q[0])

	b.Apply(ops.H, q[3])
	b.WithControl(q[1:2], func() {
		b.Apply(ops.X, q[3])
	})
	b.ApplyAll(ops.T, q[2:])

	cmds, err := b.Commands()
	require.NoError(t, err)
	require.Len(t, cmds, 4)
	assert.Equal(t, []ops.Qubit{q[0]}, cmds[0].Controls())
	assert.Equal(t, []ops.Qubit{q[0], q[1]}, cmds[1].Controls())
	assert.Equal(t, []ops.Qubit{q[0]}, cmds[2].Controls())
	assert.Equal(t, q[3], cmds[3].Target(0))
}

func TestBuilderWithControlLeavesScopeOnPanic(t *testing.T) {
	q := ops.NewAllocator().Allocate(3)
	b := NewBuilder(q[0])

	assert.Panics(t, func() {
		b.WithControl(q[1:2], func() { panic("rule bug") })
	})
	assert.Equal(t, 1, b.ctrl.Depth())

	b.Apply(ops.H, q[2])
	cmds, err := b.Commands()
	require.NoError(t, err)
	assert.Equal(t, []ops.Qubit{q[0]}, cmds[0].Controls())
}

func TestBuilderStickyError(t *testing.T) {
	q := ops.NewAllocator().Allocate(2)
	b := NewBuilder(q[0])

	b.Apply(ops.H, q[1])
	b.Apply(ops.H, q[0])
	b.Apply(ops.X, q[1])
	assert.Equal(t, 1, b.Len())

	_, err := b.Commands()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ops.ErrMalformedCommand))
}

func TestBuilderEmit(t *testing.T) {
	q := ops.NewAllocator().Allocate(3)
	b := NewBuilder(q[0])
	b.Emit(ops.MustCommand(ops.Rz(0.2), q[2:], q[1:2]))
	b.Emit(ops.MustCommand(ops.Deallocate, q[1:2], nil))

	cmds, err := b.Commands()
	require.NoError(t, err)
	assert.Equal(t, []ops.Qubit{q[0], q[1]}, cmds[0].Controls())
	assert.Empty(t, cmds[1].Controls())
}

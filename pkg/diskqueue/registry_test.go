package diskqueue_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/diskqueue/pkg/diskqueue"
)

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	reg := diskqueue.NewRegistry()
	name, err := reg.Register(noopJob)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, "diskqueue_test.noopJob"), name)

	fn, err := reg.Resolve(name)
	require.NoError(t, err)
	assert.NoError(t, fn(context.Background(), diskqueue.Args{}))

	ref, err := reg.ReferenceOf(noopJob)
	require.NoError(t, err)
	assert.Equal(t, name, ref)

	_, err = reg.Register(noopJob)
	assert.ErrorIs(t, err, diskqueue.ErrHandlerAlreadyRegistered)

	_, err = reg.Register(nil)
	assert.ErrorIs(t, err, diskqueue.ErrNilHandler)
}

func TestRegistry_RegisterNamed(t *testing.T) {
	t.Parallel()

	reg := diskqueue.NewRegistry()
	require.NoError(t, reg.RegisterNamed("jobs.fail", failingJob))

	ref, err := reg.ReferenceOf(failingJob)
	require.NoError(t, err)
	assert.Equal(t, "jobs.fail", ref)

	fn, err := reg.Resolve("jobs.fail")
	require.NoError(t, err)
	assert.ErrorIs(t, fn(context.Background(), diskqueue.Args{}), errBoom)

	assert.ErrorIs(t, reg.RegisterNamed("jobs.fail", noopJob), diskqueue.ErrHandlerAlreadyRegistered)
	assert.ErrorIs(t, reg.RegisterNamed("", noopJob), diskqueue.ErrEmptyReference)
	assert.ErrorIs(t, reg.RegisterNamed("nil", nil), diskqueue.ErrNilHandler)
}

func TestRegistry_ReferenceOfUnregistered(t *testing.T) {
	t.Parallel()

	reg := diskqueue.NewRegistry()
	ref, err := reg.ReferenceOf(noopJob)
	require.NoError(t, err)
	assert.Equal(t, diskqueue.FuncName(noopJob), ref)

	_, err = reg.Resolve(ref)
	assert.ErrorIs(t, err, diskqueue.ErrUnresolvableReference)

	_, err = reg.ReferenceOf(nil)
	assert.ErrorIs(t, err, diskqueue.ErrNilHandler)
}

func TestRegistry_MustRegister(t *testing.T) {
	t.Parallel()

	reg := diskqueue.NewRegistry()
	assert.NotPanics(t, func() { reg.MustRegister(noopJob, failingJob) })
	assert.Len(t, reg.Names(), 2)
	assert.Panics(t, func() { reg.MustRegister(noopJob) })
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()

	reg := diskqueue.NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, reg.RegisterNamed(name, noopJob))
	}
	assert.Equal(t, []string{"a", "b", "c"}, reg.Names())
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Parallel()

	reg := diskqueue.NewRegistry()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := "job-" + string(rune('A'+i%26)) + string(rune('a'+i/26))
			_ = reg.RegisterNamed(name, noopJob)
			_, _ = reg.Resolve(name)
			_ = reg.Names()
		}()
	}
	wg.Wait()
	assert.Len(t, reg.Names(), 50)
}

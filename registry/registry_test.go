package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcekit/resourcekit/resource"
)

type echoResource struct{}

func (echoResource) Execute(_ context.Context, input any) (any, error) {
	return input, nil
}

func echoFactory() resource.Resource { return echoResource{} }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("monitor.strategy", "list_alarms", echoFactory))

	b, ok := r.Lookup("monitor.strategy", "list_alarms", TierDefault)
	require.True(t, ok)
	assert.Equal(t, []string{"monitor", "strategy"}, b.Namespace)
	assert.Equal(t, "list_alarms", b.Name)
	assert.Equal(t, TierDefault, b.Tier)
	assert.Equal(t, "monitor.strategy.list_alarms", b.Path())
	assert.False(t, b.RegisteredAt.IsZero())

	_, ok = r.Lookup("monitor.strategy", "list_alarms", "enterprise")
	assert.False(t, ok)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("monitor", "list_alarms", echoFactory))

	err := r.Register("monitor", "list_alarms", echoFactory)
	var dup *resource.DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "monitor", dup.Namespace)
	assert.Equal(t, "list_alarms", dup.Name)
	assert.Equal(t, TierDefault, dup.Tier)

	// same name under a different tier is a different binding
	require.NoError(t, r.Register("monitor", "list_alarms", echoFactory, WithTier("enterprise")))
}

func TestRegistry_Replace(t *testing.T) {
	r := New()
	first := func() resource.Resource {
		return resource.Func(func(context.Context, any) (any, error) { return "first", nil })
	}
	second := func() resource.Resource {
		return resource.Func(func(context.Context, any) (any, error) { return "second", nil })
	}

	require.NoError(t, r.Register("monitor", "impl", first))
	require.NoError(t, r.Register("monitor", "impl", second, WithReplace()))

	b, ok := r.Lookup("monitor", "impl", TierDefault)
	require.True(t, ok)
	out, err := b.Factory().Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "second", out)
}

func TestRegistry_Unregister(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("monitor", "list_alarms", echoFactory))
	require.NoError(t, r.Unregister("monitor", "list_alarms", TierDefault))

	_, ok := r.Lookup("monitor", "list_alarms", TierDefault)
	assert.False(t, ok)

	err := r.Unregister("monitor", "list_alarms", TierDefault)
	var notFound *resource.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "monitor.list_alarms", notFound.Path)
}

type listAlarmsResource struct{ echoResource }

func TestRegistry_NameInferredFromFactory(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("monitor", "", func() resource.Resource { return &listAlarmsResource{} }))

	_, ok := r.Lookup("monitor", "list_alarms", TierDefault)
	assert.True(t, ok)
}

func TestRegistry_ExplicitNameDoesNotInvokeFactory(t *testing.T) {
	r := New()
	var calls int
	require.NoError(t, r.Register("monitor", "list_alarms", func() resource.Resource {
		calls++
		return echoResource{}
	}))
	assert.Zero(t, calls)

	// only name inference needs an instance to inspect
	require.NoError(t, r.Register("monitor", "", func() resource.Resource {
		calls++
		return &listAlarmsResource{}
	}, WithTier("enterprise")))
	assert.Equal(t, 1, calls)
}

// All registration origins must produce identical table state for
// identical logical bindings.
func TestRegistry_OriginsEquivalent(t *testing.T) {
	viaRegister := New()
	require.NoError(t, viaRegister.Register("monitor", "echo", echoFactory))

	viaMust := New()
	viaMust.MustRegister("monitor", "echo", echoFactory)

	viaFunc := New()
	require.NoError(t, viaFunc.RegisterFunc("monitor", "echo",
		func(_ context.Context, input any) (any, error) { return input, nil }))

	for name, r := range map[string]*Registry{"register": viaRegister, "must": viaMust, "func": viaFunc} {
		b, ok := r.Lookup("monitor", "echo", TierDefault)
		require.True(t, ok, name)
		assert.Equal(t, "monitor.echo", b.Path(), name)

		out, err := b.Factory().Execute(context.Background(), "ping")
		require.NoError(t, err, name)
		assert.Equal(t, "ping", out, name)
	}
}

func TestRegistry_RegisterFuncRequiresName(t *testing.T) {
	r := New()
	err := r.RegisterFunc("monitor", "", func(context.Context, any) (any, error) { return nil, nil })
	require.Error(t, err)
}

func TestRegistry_List(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("monitor", "list_alarms", echoFactory))
	require.NoError(t, r.Register("monitor", "list_alarms", echoFactory, WithTier("enterprise")))
	require.NoError(t, r.Register("monitor", "ack_alarm", echoFactory))
	require.NoError(t, r.Register("other", "unrelated", echoFactory))

	entries := r.List("monitor")
	require.Len(t, entries, 2)
	assert.Equal(t, "ack_alarm", entries[0].Name)
	assert.Equal(t, []string{"default"}, entries[0].Tiers)
	assert.Equal(t, "list_alarms", entries[1].Name)
	assert.Equal(t, []string{"default", "enterprise"}, entries[1].Tiers)
}

func TestRegistry_Glob(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("monitor.strategy", "list_alarms", echoFactory))
	require.NoError(t, r.Register("monitor.strategy", "ack_alarm", echoFactory))
	require.NoError(t, r.Register("monitor.uptime", "list_checks", echoFactory))

	entries, err := r.Glob("monitor.*.list_*")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "list_alarms", entries[0].Name)
	assert.Equal(t, "list_checks", entries[1].Name)

	_, err = r.Glob("monitor.[")
	require.Error(t, err)
}

func TestDefaultRegistry_Reset(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	require.NoError(t, Register("monitor", "echo", echoFactory))
	_, ok := Default().Lookup("monitor", "echo", TierDefault)
	require.True(t, ok)

	Reset()
	_, ok = Default().Lookup("monitor", "echo", TierDefault)
	assert.False(t, ok)
}

func TestMustRegister_PanicsOnCollision(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	MustRegister("monitor", "echo", echoFactory)
	assert.Panics(t, func() {
		MustRegister("monitor", "echo", echoFactory)
	})
}

package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now string }
type journal struct {
	clock *clock
	tag   string
}

func clockDef() *ServiceDefinition {
	return Define((*clock)(nil), func(deps ...any) (any, error) {
		return &clock{now: "t0"}, nil
	}).Definition()
}

func TestDefine_Defaults(t *testing.T) {
	t.Parallel()

	def := clockDef()
	assert.True(t, def.Singleton)
	assert.Nil(t, def.Identifier)
	assert.Empty(t, def.Dependencies)
	assert.Equal(t, Identifier(TypeOf(clock{})), def.ID())
}

func TestDefine_BuilderOptions(t *testing.T) {
	t.Parallel()

	tok := NewToken("journal")
	def := Define((*journal)(nil), func(deps ...any) (any, error) {
		return &journal{clock: deps[0].(*clock)}, nil
	}).Provides(tok).Transient().DependsOn(TypeOf(clock{})).Definition()

	assert.False(t, def.Singleton)
	assert.Equal(t, Identifier(tok), def.ID())
	require.Len(t, def.Dependencies, 1)
}

func TestRegisterDefinition_ResolvesWithDependencies(t *testing.T) {
	t.Parallel()

	svcs := NewServices(New())
	require.NoError(t, svcs.RegisterDefinition(clockDef()))
	require.NoError(t, svcs.RegisterDefinition(
		Define((*journal)(nil), func(deps ...any) (any, error) {
			return &journal{clock: deps[0].(*clock), tag: "j"}, nil
		}).DependsOn(TypeOf(clock{})).Definition()))

	raw, err := svcs.Get(TypeOf(journal{}))
	require.NoError(t, err)
	j := raw.(*journal)

	rawClock, err := svcs.Get(TypeOf(clock{}))
	require.NoError(t, err)
	assert.Same(t, rawClock, j.clock)
}

func TestRegisterDefinition_OverrideSharesSingleton(t *testing.T) {
	t.Parallel()

	svcs := NewServices(New())
	tok := NewToken("app.clock")
	def := Define((*clock)(nil), func(deps ...any) (any, error) {
		return &clock{}, nil
	}).Provides(tok).Definition()
	require.NoError(t, svcs.RegisterDefinition(def))

	viaToken, err := svcs.Get(tok)
	require.NoError(t, err)
	viaType, err := svcs.Get(TypeOf(clock{}))
	require.NoError(t, err)

	assert.Same(t, viaType, viaToken)
}

func TestRegisterDefinition_Invalid(t *testing.T) {
	t.Parallel()

	svcs := NewServices(New())

	err := svcs.RegisterDefinition(&ServiceDefinition{})
	require.Error(t, err)

	err = svcs.RegisterDefinition(Define((*clock)(nil), nil).Definition())
	require.ErrorIs(t, err, errNilConstructor)
}

func TestRegisterDefinition_TransientViaToken(t *testing.T) {
	t.Parallel()

	svcs := NewServices(New())
	tok := NewToken("fresh.clock")
	def := Define((*clock)(nil), func(deps ...any) (any, error) {
		return &clock{}, nil
	}).Provides(tok).Transient().Definition()
	require.NoError(t, svcs.RegisterDefinition(def))

	first, err := svcs.Get(tok)
	require.NoError(t, err)
	second, err := svcs.Get(tok)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

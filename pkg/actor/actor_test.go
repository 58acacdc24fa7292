package actor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schoolmed/schoolmed-backend/pkg/actor"
)

func TestWithActor_RoundTrip(t *testing.T) {
	a := &actor.Actor{
		ID:          "3d6a43bc-9f0e-4c5a-a8a2-6a1f7a1d9c11",
		Name:        "Nina Keller",
		Email:       "nina.keller@school.example",
		Role:        "school_nurse",
		Permissions: []string{"inventory.*", "incidents.write"},
	}

	ctx := actor.WithActor(context.Background(), a)

	got := actor.FromContext(ctx)
	assert.Equal(t, a, got)
	assert.Equal(t, a.ID, actor.ID(ctx))
	assert.False(t, got.IsSystem())
}

func TestFromContext_MissingActor(t *testing.T) {
	assert.Nil(t, actor.FromContext(context.Background()))
	assert.Nil(t, actor.FromContext(nil))
}

func TestID_FallsBackToSystem(t *testing.T) {
	id := actor.ID(context.Background())
	assert.Equal(t, actor.System().ID, id)
}

func TestSystem(t *testing.T) {
	sys := actor.System()
	assert.True(t, sys.IsSystem())
	assert.Equal(t, "System", sys.Name)

	var none *actor.Actor
	assert.True(t, none.IsSystem())
	assert.Equal(t, "system", none.String())
}

func TestActor_String(t *testing.T) {
	a := &actor.Actor{Name: "Nina Keller", Email: "nina.keller@school.example"}
	assert.Equal(t, "Nina Keller (nina.keller@school.example)", a.String())
}

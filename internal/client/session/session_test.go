package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocgamma/internal/client/api"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	var seen []State
	s.Subscribe(func(st State) { seen = append(seen, st) })

	initial := s.Snapshot()
	assert.True(t, initial.IsLoading)
	assert.False(t, initial.IsAuthenticated)
	assert.Nil(t, initial.User)

	s.SetUser(&api.User{ID: 1, Username: "ada"})
	s.Clear()
	s.SetUser(&api.User{ID: 2, Username: "grace"})

	require.Len(t, seen, 3)
	for _, st := range append(seen, s.Snapshot()) {
		assert.Equal(t, st.User != nil, st.IsAuthenticated)
		assert.False(t, st.IsLoading, "loading never comes back")
	}
	assert.Equal(t, "grace", s.Snapshot().User.Username)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	u := &api.User{ID: 1, Username: "ada"}
	s.SetUser(u)

	u.Username = "mutated"
	snap := s.Snapshot()
	snap.User.Username = "also mutated"

	assert.Equal(t, "ada", s.Snapshot().User.Username)
}

func TestUnsubscribe(t *testing.T) {
	s := NewStore()
	calls := 0
	unsubscribe := s.Subscribe(func(State) { calls++ })
	s.Clear()
	unsubscribe()
	s.Clear()
	assert.Equal(t, 1, calls)
}

func TestGuard(t *testing.T) {
	loading := State{IsLoading: true}
	anonymous := State{}
	signedIn := State{User: &api.User{ID: 1}, IsAuthenticated: true}

	tests := []struct {
		name   string
		state  State
		access Access
		want   Decision
	}{
		{"loading protected", loading, Protected, Decision{Outcome: Pending}},
		{"loading public only", loading, PublicOnly, Decision{Outcome: Pending}},
		{"anonymous protected", anonymous, Protected, Decision{Outcome: Redirect, To: LoginPath}},
		{"anonymous public only", anonymous, PublicOnly, Decision{Outcome: Render}},
		{"signed in protected", signedIn, Protected, Decision{Outcome: Render}},
		{"signed in public only", signedIn, PublicOnly, Decision{Outcome: Redirect, To: HomePath}},
		{"open", anonymous, Open, Decision{Outcome: Render}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Guard(tt.state, tt.access))
		})
	}
}

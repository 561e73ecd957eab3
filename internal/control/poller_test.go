package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/volctrld/pkg/speaker"
)

func TestPollerRoundRobin(t *testing.T) {
	reg := speaker.NewRegistry()
	spk := newFakeSpeaker()
	for _, a := range []string{"a", "b", "c"} {
		_, err := reg.Register(a, "")
		require.NoError(t, err)
		spk.set(a, 10, false)
	}
	p := NewPoller(reg, spk, testLogger())

	for i := 0; i < 5; i++ {
		_, ok := p.PollNext(context.Background())
		require.True(t, ok)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b"}, spk.polled)
}

func TestPollerEmptyRegistry(t *testing.T) {
	p := NewPoller(speaker.NewRegistry(), newFakeSpeaker(), testLogger())
	_, ok := p.PollNext(context.Background())
	assert.False(t, ok)
}

func TestPollerReportsOnlyChangedFields(t *testing.T) {
	reg := speaker.NewRegistry()
	st, err := reg.Register("a", "")
	require.NoError(t, err)
	spk := newFakeSpeaker()
	spk.set("a", 30, false)
	p := NewPoller(reg, spk, testLogger())

	res := p.Poll(context.Background(), st)
	assert.ElementsMatch(t, []Change{
		{Address: "a", Field: FieldReachable, Value: true},
		{Address: "a", Field: FieldVolume, Value: 30.0},
		{Address: "a", Field: FieldStandby, Value: 3600},
	}, res.Changes)

	res = p.Poll(context.Background(), st)
	assert.Empty(t, res.Changes)

	spk.set("a", 30, true)
	res = p.Poll(context.Background(), st)
	assert.Equal(t, []Change{{Address: "a", Field: FieldMute, Value: true}}, res.Changes)

	spk.down["a"] = true
	res = p.Poll(context.Background(), st)
	assert.Equal(t, []Change{{Address: "a", Field: FieldReachable, Value: false}}, res.Changes)
	assert.True(t, st.Muted(), "cached values survive a failed poll")
}

func TestPollerParseFailureKeepsReachable(t *testing.T) {
	reg := speaker.NewRegistry()
	st, err := reg.Register("a", "")
	require.NoError(t, err)
	p := NewPoller(reg, newFakeSpeaker(), testLogger())

	res := p.Poll(context.Background(), st)
	assert.True(t, st.Reachable())
	assert.Equal(t, []Change{{Address: "a", Field: FieldReachable, Value: true}}, res.Changes)
	_, ok := st.Volume()
	assert.False(t, ok)
}

package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/farebridge/pkg/envelope"
)

func TestClientValidatesBeforeDispatch(t *testing.T) {
	// No session at all: bad arguments still fail as invalid, not as a
	// connectivity problem
	client := NewClient(nil)

	env := client.SearchFlights(context.Background(), map[string]interface{}{"origin": "NEWYORK"})
	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindInvalidArgument, env.ErrorKind)

	env = client.AutocompleteLocations(context.Background(), map[string]interface{}{"query": "paris"})
	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindNotConnected, env.ErrorKind)

	assert.False(t, client.Connected())
}

func TestClientPerform(t *testing.T) {
	session := helperSession(t, "")
	require.NoError(t, session.Open(context.Background()))
	defer session.Close()

	client := NewClient(session)
	assert.True(t, client.Connected())

	env := client.AutocompleteLocations(context.Background(), map[string]interface{}{"query": "kennedy"})
	require.True(t, env.Success, "error: %s", env.Error)
	assert.EqualValues(t, 1, env.Payload["count"])

	tools := client.ListTools(context.Background())
	require.True(t, tools.Success)

	require.NoError(t, session.Close())
	assert.False(t, client.Connected())
}

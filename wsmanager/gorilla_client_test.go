package wsmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGorillaClientInitialState(t *testing.T) {
	c := NewGorillaClient("wss://example.invalid/ws")
	assert.Equal(t, Closed, c.GetState())
}

func TestGorillaClientCloseWithoutConnectIsSafe(t *testing.T) {
	c := NewGorillaClient("wss://example.invalid/ws")
	assert.NoError(t, c.Close())
	assert.Equal(t, Closed, c.GetState())
}

func TestGorillaClientHooksAreStored(t *testing.T) {
	c := NewGorillaClient("wss://example.invalid/ws")
	var gotMsg string
	c.OnMessage(func(raw string) { gotMsg = raw })
	c.onMessage("hello")
	assert.Equal(t, "hello", gotMsg)
}

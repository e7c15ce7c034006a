package websocket

import (
	"testing"
	"time"

	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusBroadcaster_EmitsBotStatus(t *testing.T) {
	fn := StatusBroadcaster()

	row := domainBot.Bot{
		ID:         "bot-1",
		Phone:      "254700000001",
		TenantName: "SERVER1",
	}

	// Broadcast is unbuffered; the send blocks until the hub (here: the
	// test) drains it.
	go fn(row, domainBot.StatusLoading, domainBot.StatusOnline, "connected")

	select {
	case msg := <-Broadcast:
		assert.Equal(t, "BOT_STATUS", msg.Code)
		assert.Equal(t, "connected", msg.Message)

		result, ok := msg.Result.(map[string]any)
		require.True(t, ok, "result should be a map, got %T", msg.Result)
		assert.Equal(t, "bot-1", result["bot_id"])
		assert.Equal(t, "SERVER1", result["tenant"])
		assert.Equal(t, "254700000001", result["phone"])
		assert.Equal(t, domainBot.StatusLoading, result["from"])
		assert.Equal(t, domainBot.StatusOnline, result["to"])
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast arrived within 2s")
	}
}

func TestHub_RegisterAndUnregisterBookkeeping(t *testing.T) {
	conn := new(websocket.Conn)
	t.Cleanup(func() { delete(Clients, conn) })

	handleRegister(conn)
	_, registered := Clients[conn]
	require.True(t, registered, "connection should be tracked after register")

	handleUnregister(conn)
	_, registered = Clients[conn]
	assert.False(t, registered, "connection should be gone after unregister")
}

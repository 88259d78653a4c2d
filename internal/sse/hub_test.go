package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
)

func TestCloseClient_SecondCallIsNoOp(t *testing.T) {
	hub := NewSSEHub(logger.NewNop())
	userID := uuid.New()

	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, userID.String())

	// Reconnect closes the replaced client, then its unwinding handler
	// closes it again. Neither call may panic.
	hub.CloseClient(client)
	hub.CloseClient(client)

	select {
	case <-client.done:
	default:
		t.Fatalf("done channel not closed")
	}
	if _, ok := <-client.Outbound; ok {
		t.Fatalf("outbound channel not closed")
	}
}

func TestCloseClient_RemovesSubscriptions(t *testing.T) {
	hub := NewSSEHub(logger.NewNop())
	userID := uuid.New()

	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, userID.String())
	hub.CloseClient(client)

	// A broadcast after close must not reach the closed outbound channel.
	hub.Broadcast(SSEMessage{Channel: userID.String(), Event: SSEEventBriefAnalysisSettled})
}

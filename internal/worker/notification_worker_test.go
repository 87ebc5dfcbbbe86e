package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
)

type capture struct {
	mu   sync.Mutex
	sent []service.Notification
}

func (c *capture) Notify(_ context.Context, n service.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func TestStartNotificationWorker(t *testing.T) {
	assert.Nil(t, StartNotificationWorker(nil, nil, nil, nil))

	dispatcher := events.NewInMemoryDispatcher(nil)
	sink := &capture{}
	require.NotNil(t, StartNotificationWorker(dispatcher, memory.NewStore(nil), sink, nil))

	event := events.New(events.EventSessionReuseDetected, "", events.Actor{ID: "c-1", Role: domain.RoleCustomer}, time.Now(),
		events.SessionReuseDetectedPayload{IdentityID: "c-1", Revoked: 2})
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "c-1", sink.sent[0].Recipient)
	assert.Equal(t, events.EventSessionReuseDetected, sink.sent[0].Kind)
}

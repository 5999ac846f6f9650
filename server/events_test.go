package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscribers(b *EventBus, projectID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[projectID])
}

func TestEventBusScopesByProject(t *testing.T) {
	b := NewEventBus()
	ch1, cancel1 := b.Subscribe(1)
	ch2, cancel2 := b.Subscribe(2)
	defer cancel2()

	b.Publish(NewEvent(TicketCreated, 1, nil, nil))

	select {
	case msg := <-ch1:
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, TicketCreated, ev.Type)
		assert.Equal(t, "ticket", ev.Entity)
	default:
		t.Fatal("subscriber of project 1 got nothing")
	}
	assert.Empty(t, ch2)

	cancel1()
	assert.Equal(t, 0, subscribers(b, 1))
	_, open := <-ch1
	assert.False(t, open)
}

func TestEventBusDropsForSlowSubscribers(t *testing.T) {
	b := NewEventBus()
	ch, cancel := b.Subscribe(1)
	defer cancel()
	for range cap(ch) + 5 {
		b.Publish(NewEvent(TicketMoved, 1, nil, nil))
	}
	assert.Len(t, ch, cap(ch))
}

func TestServeSSE(t *testing.T) {
	b := NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeSSE(rec, req, 3)
		close(done)
	}()
	require.Eventually(t, func() bool { return subscribers(b, 3) == 1 }, time.Second, 5*time.Millisecond)

	col := int64(8)
	b.Publish(NewEvent(ColumnCreated, 3, &col, nil))
	// give the stream a moment to write before it is torn down
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), ": connected\n\n")
	assert.Contains(t, rec.Body.String(), `data: {"type":"column.created","entity":"column","projectId":3,"columnId":8}`)
	assert.Equal(t, 0, subscribers(b, 3))
}

func TestEventTypeEntity(t *testing.T) {
	for typ, entity := range map[EventType]string{
		ProjectUpdated: "project",
		MemberRemoved:  "member",
		ColumnMoved:    "column",
		TicketDeleted:  "ticket",
	} {
		assert.Equal(t, entity, typ.Entity(), string(typ))
	}
}

package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToTopic(t *testing.T) {
	hub := NewHub(1)

	a, cancelA := hub.Subscribe("room-a")
	defer cancelA()
	b, cancelB := hub.Subscribe("room-b")
	defer cancelB()

	assert.Equal(t, 1, hub.Publish("room-a", Event{Event: "scan", Data: "hello"}))

	select {
	case ev := <-a:
		assert.Equal(t, "room-a", ev.Topic)
		assert.Equal(t, "hello", ev.Data)
	default:
		t.Fatal("subscriber of room-a got nothing")
	}

	select {
	case <-b:
		t.Fatal("subscriber of room-b got an event of room-a")
	default:
	}
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe("room-a")
	defer cancel()

	assert.Equal(t, 1, hub.Publish("room-a", Event{Event: "scan"}))
	assert.Equal(t, 0, hub.Publish("room-a", Event{Event: "scan"}))
	assert.Len(t, ch, 1)
}

func TestHub_Cleanup(t *testing.T) {
	hub := NewHub(0)
	ch, cancel := hub.Subscribe("room-a")
	_, cancelOther := hub.Subscribe("room-a")
	assert.Equal(t, 2, hub.SubscriberCount("room-a"))

	cancel()
	cancel()
	_, open := <-ch
	require.False(t, open)
	assert.Equal(t, 1, hub.TotalSubscribers())

	cancelOther()
	assert.Zero(t, hub.TotalSubscribers())
}

package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/convoy-tracker/pkg/domain"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New(4, 10)
	recv, id := b.Subscribe()
	defer b.Unsubscribe(id)

	b.Publish(domain.SystemEvent("test", "hello"))

	select {
	case ev := <-recv.Events():
		assert.Equal(t, domain.EventSystem, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestLaggedSignalOnFullChannel(t *testing.T) {
	b := New(1, 10)
	recv, id := b.Subscribe()
	defer b.Unsubscribe(id)

	b.Publish(domain.SystemEvent("a", "1"))
	b.Publish(domain.SystemEvent("b", "2")) // channel already full, dropped + lag recorded

	select {
	case n := <-recv.Lagged():
		assert.Equal(t, uint64(1), n)
	case <-time.After(time.Second):
		t.Fatal("expected a lag signal")
	}
}

func TestHistoryBounded(t *testing.T) {
	b := New(4, 2)
	for i := 0; i < 5; i++ {
		b.Publish(domain.SystemEvent("x", "y"))
	}
	assert.Len(t, b.GetRecent(10), 2)
}

func TestUnsubscribeClosesDone(t *testing.T) {
	b := New(4, 2)
	recv, id := b.Subscribe()
	b.Unsubscribe(id)

	select {
	case <-recv.Closed():
	case <-time.After(time.Second):
		t.Fatal("expected done channel to close")
	}
}

func TestEventCountIncrements(t *testing.T) {
	b := New(4, 10)
	b.Publish(domain.SystemEvent("a", "1"))
	b.Publish(domain.SystemEvent("b", "2"))
	require.Equal(t, uint64(2), b.EventCount())
}

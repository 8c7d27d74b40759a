package events

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus(nil)
	first, unsubFirst := bus.Subscribe("first", 4)
	second, unsubSecond := bus.Subscribe("second", 4)
	defer unsubFirst()
	defer unsubSecond()

	event := models.IntentExecuted{IntentID: 1, User: "alice", EthRecipient: "0xabc", Timestamp: 10}
	bus.Emit(event)

	assert.Equal(t, event, <-first)
	assert.Equal(t, event, <-second)
	assert.Equal(t, 2, bus.SubscriberCount())
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(nil)
	ch, unsubscribe := bus.Subscribe("slow-relayer", 1)
	defer unsubscribe()

	before := testutil.ToFloat64(metrics.DroppedEvents.WithLabelValues("slow-relayer"))

	bus.Emit(models.IntentExecuted{IntentID: 1})
	bus.Emit(models.IntentExecuted{IntentID: 2})

	assert.Equal(t, uint64(1), (<-ch).IntentID)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DroppedEvents.WithLabelValues("slow-relayer")))
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(nil)
	ch, unsubscribe := bus.Subscribe("relayer", 0)

	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.SubscriberCount())

	// emitting with no subscribers is a no-op
	bus.Emit(models.IntentExecuted{IntentID: 3})
}

func TestRunLogSubscriber(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(nil)
	ch, unsubscribe := bus.Subscribe("log", 4)
	recorder := &Recorder{}

	done := make(chan struct{})
	go func() {
		RunLogSubscriber(context.Background(), ch, recorder)
		close(done)
	}()

	bus.Emit(models.IntentExecuted{IntentID: 7, User: "alice"})
	require.Eventually(t, func() bool {
		return len(recorder.Events()) == 1
	}, time.Second, 10*time.Millisecond)

	unsubscribe()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not stop after unsubscribe")
	}

	NewLogEmitter(logger.NewWriterLogger(&buf, false, logger.DebugLevel)).Emit(recorder.Events()[0])
	assert.Contains(t, buf.String(), `IntentExecuted {"intent_id":7,"user":"alice","eth_recipient":"","timestamp":0,"burned":false}`)
}

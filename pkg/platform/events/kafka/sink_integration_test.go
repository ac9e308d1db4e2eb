//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "linkup/pkg/domain"
	"linkup/pkg/platform/events"
	"linkup/pkg/platform/events/kafka"
	"linkup/pkg/testutil/containers"
)

func TestSinkPublishRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	ctx := context.Background()
	redpanda := containers.GetManager().GetRedpanda(t)

	const topic = "linkup.connection-events.test"
	sink, err := kafka.NewSink(redpanda.Brokers, topic)
	require.NoError(t, err)
	t.Cleanup(sink.Close)

	require.NoError(t, sink.EnsureTopic(ctx, 1, 1))
	// EnsureTopic must tolerate the topic already existing.
	require.NoError(t, sink.EnsureTopic(ctx, 1, 1))

	event := events.Event{
		Type:         events.TypeAccepted,
		ConnectionID: id.NewConnectionID(),
		RequesterID:  id.NewUserID(),
		AddresseeID:  id.NewUserID(),
		Timestamp:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, sink.Publish(ctx, event.ConnectionID.String(), payload))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, event.ConnectionID.String(), string(records[0].Key))

	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, events.TypeAccepted, got.Type)
	assert.Equal(t, event.RequesterID, got.RequesterID)
}

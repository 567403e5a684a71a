//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"
)

// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_PublishSubscribeEvent(t *testing.T) {
	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	var (
		mu       sync.Mutex
		received []string
		done     = make(chan struct{}, 1)
	)
	err = client.Subscribe(client.Topics().AllEvents(), 1, func(topic string, _ []byte) error {
		mu.Lock()
		received = append(received, topic)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.PublishEvent(EventEntityRenamed, map[string]string{"old_entity_id": "light.a"}); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}

	mu.Lock()
	defer mu.Unlock()
	if received[0] != client.Topics().Event(EventEntityRenamed) {
		t.Errorf("topic = %q", received[0])
	}
}

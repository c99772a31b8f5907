//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PubSub(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()
	logger := slog.Default()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan RawTraceEvent, 1)

	err = client.Subscribe("stackoverfix.test.>", func(subject string, data []byte) {
		var evt RawTraceEvent
		json.Unmarshal(data, &evt)
		received <- evt
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := client.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	err = client.Publish("stackoverfix.test.ping", RawTraceEvent{
		Source:    "integration",
		Traceback: "ValueError: boom",
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case evt := <-received:
		if evt.Source != "integration" || evt.Traceback != "ValueError: boom" {
			t.Errorf("unexpected event %+v", evt)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

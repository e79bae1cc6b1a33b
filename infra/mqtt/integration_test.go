//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	coremqtt "github.com/kilianp07/bmu-balancer/core/mqtt"
	"github.com/kilianp07/bmu-balancer/test/util"
)

// TestMosquittoRoundTrip publishes an instruction through a real broker and
// waits for the simulated asset to acknowledge it.
func TestMosquittoRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer cleanup()

	cfg := Config{Enabled: true, Broker: broker, ClientID: "balancer", QoS: map[string]byte{"instruction": 1, "ack": 1}}
	cfg.SetDefaults()

	received, stop, err := util.StartAckingAsset(broker, cfg.TopicPrefix, 3)
	if err != nil {
		t.Fatalf("asset: %v", err)
	}
	defer stop()

	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer cli.Disconnect()
	// Give the ack subscription time to settle.
	time.Sleep(200 * time.Millisecond)

	cmdID, err := cli.Publish(ctx, message(3))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case raw := <-received:
		var msg coremqtt.InstructionMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.CommandID != cmdID || msg.MW != 10 {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-ctx.Done():
		t.Fatalf("instruction not received")
	}
	ok, err := cli.WaitForAck(cmdID, 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("ack: %v", err)
	}
}

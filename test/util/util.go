// Package util holds helpers for the integration tests: a disposable
// Mosquitto broker, a simulated asset acknowledging instructions and a
// Prometheus endpoint poller.
package util

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`

// WaitForMetric polls metricsURL until its body contains substr.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	for {
		found, err := scrapeContains(ctx, metricsURL, substr)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("metric %q not found: %w", substr, ctx.Err())
		case <-tick.C:
		}
	}
}

// scrapeContains treats transport errors as "not yet available".
func scrapeContains(ctx context.Context, url, substr string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read metrics body: %w", err)
	}
	return strings.Contains(string(body), substr), nil
}

// StartMosquitto runs an anonymous Mosquitto broker in a container and
// returns its URL and a cleanup function.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			Reader:            strings.NewReader(mosquittoConf),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = cont.Terminate(context.Background()) }

	endpoint, err := cont.PortEndpoint(ctx, "1883/tcp", "tcp")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, endpoint); err != nil {
		cleanup()
		return "", nil, err
	}
	return endpoint, cleanup, nil
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("bmu-check"))
	for {
		if token := cli.Connect(); token.Wait() && token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// StartAckingAsset connects a simulated asset to broker. It acknowledges every
// instruction published for assetID under prefix and forwards the raw
// payloads on the returned channel.
func StartAckingAsset(broker, prefix string, assetID int) (<-chan []byte, func(), error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(fmt.Sprintf("asset-%d", assetID))
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, token.Error()
	}
	out := make(chan []byte, 16)
	ackTopic := fmt.Sprintf("%s/asset/%d/ack", prefix, assetID)
	handler := func(c paho.Client, m paho.Message) {
		var msg struct {
			CommandID string `json:"command_id"`
		}
		if err := json.Unmarshal(m.Payload(), &msg); err == nil {
			ack, _ := json.Marshal(msg)
			c.Publish(ackTopic, 1, false, ack)
		}
		select {
		case out <- m.Payload():
		default:
		}
	}
	topic := fmt.Sprintf("%s/asset/%d/instruction", prefix, assetID)
	if token := cli.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		cli.Disconnect(100)
		return nil, nil, token.Error()
	}
	return out, func() { cli.Disconnect(100) }, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
	"github.com/RayRama/laundry-monitor-sub001/internal/mqtt"
	"github.com/RayRama/laundry-monitor-sub001/internal/notify"
	"github.com/RayRama/laundry-monitor-sub001/internal/status"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func fakeClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func noStats() notify.Stats { return notify.Stats{} }

func noTransitions() map[logic.Status]int { return nil }

func testStore() *status.Store {
	store := status.NewStore(status.DefaultStaleThreshold)
	store.Set(status.NewSnapshot([]status.Device{
		{ID: "1", Type: logic.TypeWasher, Label: "W01", Status: logic.StatusRunning},
		{ID: "2", Type: logic.TypeDryer, Label: "D01", Status: logic.StatusReady},
	}, status.Meta{Timestamp: t0, LastSuccess: t0}))
	return store
}

type statusEnvelope struct {
	Status struct {
		Event         string                       `json:"event"`
		Reason        string                       `json:"reason"`
		UptimeSeconds int64                        `json:"uptime_seconds"`
		Devices       int                          `json:"devices"`
		Aggregates    map[string]status.CountsJSON `json:"aggregates"`
		Version       uint64                       `json:"version"`
		MQTT          *status.MQTTJSON             `json:"mqtt"`
	} `json:"status"`
}

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v) = %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func TestRunLoopShutdown(t *testing.T) {
	for _, sig := range []os.Signal{syscall.SIGINT, syscall.SIGTERM} {
		t.Run(signalName(sig), func(t *testing.T) {
			pub := mqtt.NewFakePublisher()
			sigCh := make(chan os.Signal, 1)
			sigCh <- sig

			err := runLoop(context.Background(), pub, pub, testStore(), noStats, noTransitions, t0, fakeClock(t0, time.Minute), nil, sigCh)
			if err != nil {
				t.Fatalf("runLoop: %v", err)
			}

			events := pub.SystemEvents()
			if len(events) != 1 {
				t.Fatalf("expected 1 system event, got %d", len(events))
			}
			ev := events[0]
			if ev.Event != "SHUTDOWN" || ev.Reason != signalName(sig) || !ev.Retained {
				t.Errorf("event: %+v", ev)
			}

			var env statusEnvelope
			if err := json.Unmarshal(pub.SystemPayloads()[0], &env); err != nil {
				t.Fatalf("payload: %v", err)
			}
			if env.Status.Event != "SHUTDOWN" || env.Status.Reason != signalName(sig) {
				t.Errorf("payload event: %+v", env.Status)
			}
			if env.Status.Devices != 2 || env.Status.UptimeSeconds != 60 {
				t.Errorf("payload summary: %+v", env.Status)
			}
		})
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	hb := make(chan time.Time, 2)
	sigCh := make(chan os.Signal, 1)
	hb <- t0
	hb <- t0

	done := make(chan error, 1)
	go func() {
		done <- runLoop(context.Background(), pub, pub, testStore(), noStats, noTransitions, t0, fakeClock(t0, 15*time.Minute), hb, sigCh)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.SystemEvents()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("heartbeats not published")
		}
		time.Sleep(time.Millisecond)
	}
	sigCh <- syscall.SIGTERM
	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	events := pub.SystemEvents()
	if len(events) != 3 {
		t.Fatalf("expected 2 heartbeats and a shutdown, got %d", len(events))
	}
	for i := 0; i < 2; i++ {
		if events[i].Event != "HEARTBEAT" || events[i].Retained {
			t.Errorf("event %d: %+v", i, events[i])
		}
	}

	var env statusEnvelope
	if err := json.Unmarshal(pub.SystemPayloads()[1], &env); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if env.Status.UptimeSeconds != 1800 {
		t.Errorf("second heartbeat uptime: %d", env.Status.UptimeSeconds)
	}
	if env.Status.Aggregates["washer"].Running != 1 || env.Status.Version != 1 {
		t.Errorf("heartbeat summary: %+v", env.Status)
	}
}

func TestRunLoopReportsMQTTLink(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = false
	pub.Pending = 3
	hb := make(chan time.Time, 1)
	hb <- t0
	sigCh := make(chan os.Signal, 1)

	done := make(chan error, 1)
	go func() {
		done <- runLoop(context.Background(), pub, pub, testStore(), noStats, noTransitions, t0, fakeClock(t0, time.Minute), hb, sigCh)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.SystemEvents()) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("heartbeat not published")
		}
		time.Sleep(time.Millisecond)
	}
	pub.Connected = true
	pub.Pending = 0
	sigCh <- syscall.SIGTERM
	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}

	payloads := pub.SystemPayloads()
	if len(payloads) != 2 {
		t.Fatalf("expected heartbeat and shutdown, got %d", len(payloads))
	}
	want := []status.MQTTJSON{{Connected: false, Buffered: 3}, {Connected: true, Buffered: 0}}
	for i, p := range payloads {
		var env statusEnvelope
		if err := json.Unmarshal(p, &env); err != nil {
			t.Fatalf("payload %d: %v", i, err)
		}
		if env.Status.MQTT == nil || *env.Status.MQTT != want[i] {
			t.Errorf("payload %d mqtt: got %+v, want %+v", i, env.Status.MQTT, want[i])
		}
	}
}

func TestMQTTLinkWithoutBroker(t *testing.T) {
	if mqttLink(nil) != nil {
		t.Error("expected no link without a broker")
	}
	if linkSuffix(nil) != "" {
		t.Error("expected no heartbeat suffix without a broker")
	}
}

func TestRunLoopPublishError(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = errors.New("broker gone")
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGINT

	if err := runLoop(context.Background(), pub, pub, testStore(), noStats, noTransitions, t0, fakeClock(t0, time.Second), nil, sigCh); err != nil {
		t.Errorf("publish failure should not fail shutdown: %v", err)
	}
}

func TestRunLoopWithoutPublisher(t *testing.T) {
	hb := make(chan time.Time, 1)
	hb <- t0
	sigCh := make(chan os.Signal, 1)

	done := make(chan error, 1)
	go func() {
		done <- runLoop(context.Background(), nil, nil, status.NewStore(time.Minute), noStats, noTransitions, t0, fakeClock(t0, time.Second), hb, sigCh)
	}()
	sigCh <- syscall.SIGTERM

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runLoop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not return")
	}
}

func TestRunLoopContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runLoop(ctx, mqtt.NewFakePublisher(), nil, testStore(), noStats, noTransitions, t0, fakeClock(t0, time.Second), nil, make(chan os.Signal))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestVersion(t *testing.T) {
	if version(nil) != 0 {
		t.Error("nil snapshot should report version 0")
	}
	if version(testStore().Get()) != 1 {
		t.Error("expected version 1")
	}
}

// Command laundry-monitor polls washer and dryer telemetry, serves a
// normalized snapshot over HTTP and publishes confirmed transitions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RayRama/laundry-monitor-sub001/internal/audit"
	"github.com/RayRama/laundry-monitor-sub001/internal/config"
	"github.com/RayRama/laundry-monitor-sub001/internal/labels"
	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
	"github.com/RayRama/laundry-monitor-sub001/internal/mqtt"
	"github.com/RayRama/laundry-monitor-sub001/internal/notify"
	"github.com/RayRama/laundry-monitor-sub001/internal/pipeline"
	"github.com/RayRama/laundry-monitor-sub001/internal/refresh"
	"github.com/RayRama/laundry-monitor-sub001/internal/source"
	"github.com/RayRama/laundry-monitor-sub001/internal/status"
	"github.com/RayRama/laundry-monitor-sub001/internal/web"
)

func main() {
	cfg := config.Load()

	flag.StringVar(&cfg.UpstreamURL, "upstream", cfg.UpstreamURL, "Telemetry API base URL")
	flag.StringVar(&cfg.OutletID, "outlet", cfg.OutletID, "Outlet ID to monitor")
	flag.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "Background refresh interval")
	flag.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Upstream request timeout")
	flag.DurationVar(&cfg.HoldWindow, "hold", cfg.HoldWindow, "Hold window before a status change is confirmed")
	flag.DurationVar(&cfg.StaleThreshold, "stale", cfg.StaleThreshold, "Snapshot age after which it is stale")
	flag.DurationVar(&cfg.StartSkewLimit, "start-skew", cfg.StartSkewLimit, "Oldest upstream timestamp trusted as a run start")
	flag.StringVar(&cfg.LabelsFile, "labels", cfg.LabelsFile, "YAML label/slot map (empty for fallback labels)")
	flag.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP listen address")
	flag.IntVar(&cfg.EventQueueSize, "queue", cfg.EventQueueSize, "Transition event queue size")
	flag.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (0 to disable)")
	flag.StringVar(&cfg.MQTTBroker, "broker", cfg.MQTTBroker, "MQTT broker address (empty to disable)")
	flag.StringVar(&cfg.ClickHouseAddr, "clickhouse", cfg.ClickHouseAddr, "ClickHouse address for the audit log (empty to disable)")
	once := flag.Bool("once", false, "Fetch once, print the snapshot JSON and exit")

	flag.Parse()

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := run(cfg, *once); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, once bool) error {
	started := time.Now()

	resolver, err := labels.LoadFile(cfg.LabelsFile)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	var sinks []notify.NamedSink
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTTBroker != "" && !once {
		p, err := mqtt.NewRealPublisher(mqtt.Config{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Outbox:   cfg.MQTTOutboxSize,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher = p
		mqttStatus = p
		sinks = append(sinks, notify.NamedSink{Name: "mqtt", Sink: p})
	}
	if cfg.ClickHouseAddr != "" && !once {
		a, err := audit.NewClickHouseSink(audit.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePass,
		})
		if err != nil {
			return fmt.Errorf("init audit: %w", err)
		}
		defer a.Close()
		sinks = append(sinks, notify.NamedSink{Name: "audit", Sink: a})
	}

	dispatcher := notify.New(cfg.EventQueueSize, sinks...)
	pipe := pipeline.New(pipeline.Config{
		HoldWindow:     cfg.HoldWindow,
		StartSkewLimit: cfg.StartSkewLimit,
	}, resolver, dispatcher)
	store := status.NewStore(cfg.StaleThreshold)
	src := source.NewHTTPSource(cfg.UpstreamURL, cfg.UpstreamToken, &http.Client{})

	sched, err := refresh.New(refresh.Config{
		OutletID: cfg.OutletID,
		Interval: cfg.PollInterval,
		Timeout:  cfg.FetchTimeout,
	}, src, pipe, store)
	if err != nil {
		return err
	}

	if once {
		snap := sched.RefreshOnce(context.Background())
		os.Stdout.Write(status.FormatJSON(snap))
		fmt.Println()
		if snap.Meta.LastError != "" {
			return errors.New(snap.Meta.LastError)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})

	// First refresh before STARTUP so the summary carries real counts
	sched.RefreshOnce(ctx)
	publishSystem(publisher, mqtt.SystemEvent{
		Timestamp:  time.Now(),
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(store.Get(), started, time.Now(), "STARTUP", "", mqttLink(mqttStatus)),
	})

	g.Go(func() error {
		sched.Poll(gctx)
		return nil
	})

	srv := web.New(cfg.HTTPAddr, sched, started)
	g.Go(func() error {
		log.Printf("http server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	log.Printf("started: outlet=%s poll=%v hold=%v stale=%v broker=%q clickhouse=%q heartbeat=%v",
		cfg.OutletID, cfg.PollInterval, cfg.HoldWindow, cfg.StaleThreshold, cfg.MQTTBroker, cfg.ClickHouseAddr, cfg.Heartbeat)

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	loopErr := runLoop(gctx, publisher, mqttStatus, store, dispatcher.Stats, pipe.TransitionCounts, started, time.Now, heartbeat, sigCh)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	cancel()

	if err := g.Wait(); err != nil {
		return err
	}
	return loopErr
}

// runLoop publishes heartbeats until a signal arrives or ctx is done.
func runLoop(ctx context.Context, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, store *status.Store, stats func() notify.Stats, transitions func() map[logic.Status]int, started time.Time, now func() time.Time, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			reason := signalName(s)
			t := now()
			publishSystem(publisher, mqtt.SystemEvent{
				Timestamp:  t,
				Event:      "SHUTDOWN",
				Reason:     reason,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(store.Get(), started, t, "SHUTDOWN", reason, mqttLink(mqttStatus)),
			})
			return nil

		case <-heartbeat:
			t := now()
			st := stats()
			tc := transitions()
			link := mqttLink(mqttStatus)
			log.Printf("heartbeat: uptime=%v version=%d to_ready=%d to_running=%d to_offline=%d events queued=%d delivered=%d dropped=%d failed=%d%s",
				t.Sub(started).Truncate(time.Second), version(store.Get()),
				tc[logic.StatusReady], tc[logic.StatusRunning], tc[logic.StatusOffline],
				st.Queued, st.Delivered, st.Dropped, st.Failed, linkSuffix(link))
			publishSystem(publisher, mqtt.SystemEvent{
				Timestamp:  t,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(store.Get(), started, t, "HEARTBEAT", "", link),
			})
		}
	}
}

func publishSystem(publisher mqtt.Publisher, event mqtt.SystemEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish %s event: %v", event.Event, err)
		return
	}
	log.Printf("published %s event", event.Event)
}

// mqttLink samples the broker link, or nil when no broker is configured.
func mqttLink(s mqtt.ConnectionStatus) *status.MQTTJSON {
	if s == nil {
		return nil
	}
	return &status.MQTTJSON{Connected: s.IsConnected(), Buffered: s.Buffered()}
}

func linkSuffix(link *status.MQTTJSON) string {
	if link == nil {
		return ""
	}
	return fmt.Sprintf(" mqtt_connected=%t mqtt_buffered=%d", link.Connected, link.Buffered)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func version(snap *status.Snapshot) uint64 {
	if snap == nil {
		return 0
	}
	return snap.Meta.Version
}

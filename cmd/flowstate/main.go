package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HoangNam-dev/FlowState-Engine/api"
	"github.com/HoangNam-dev/FlowState-Engine/changelog"
	"github.com/HoangNam-dev/FlowState-Engine/codec"
	"github.com/HoangNam-dev/FlowState-Engine/engine"
	"github.com/HoangNam-dev/FlowState-Engine/store"
)

func main() {
	metricsAddr := ":9102"
	upstreamAddr := "tcp://127.0.0.1:5601" // source of live session records
	publishAddr := "tcp://127.0.0.1:5600"  // evicted entries fan out here
	applicationID := "flowstate-demo"

	metrics := api.NewStoreMetrics("flowstate", nil)

	publisher := changelog.NewPublisher(publishAddr)
	if err := publisher.Start(); err != nil {
		log.Fatalf("Failed to start changelog publisher: %v", err)
	}

	ctx := engine.NewContext(applicationID,
		engine.WithDefaultSerdes(codec.String{}, codec.String{}))

	topic := engine.ChangelogTopic(applicationID, "session-state")
	lru, err := store.NewMemoryLRUStore("session-state", 10000,
		store.WithEvictionListener(func(key string, value *string) {
			metrics.RecordEviction()
			rec := changelog.Record{Key: []byte(key)}
			if value != nil {
				rec.Value = []byte(*value)
			}
			if err := publisher.Publish(topic, []changelog.Record{rec}); err != nil {
				log.Printf("Failed to publish evicted entry: %v", err)
			}
		}))
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}

	logged := store.EnableLogging[string, string](lru, codec.String{}, codec.String{})
	if err := logged.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	if err := ctx.Restore(topic); err != nil {
		log.Fatalf("Failed to restore store: %v", err)
	}
	metrics.RecordRestored(ctx.Changelog().Len(topic))

	sessions := api.NewMeteredStore[string, string](logged, metrics)

	pool := engine.NewRecordPool("session-tasks", 4, func(rec *engine.Record) error {
		if rec.Value == nil {
			sessions.Delete(string(rec.Key))
			return nil
		}
		value := string(rec.Value)
		sessions.Put(string(rec.Key), &value)
		return nil
	})

	follower := changelog.NewFollower(upstreamAddr, []string{"sessions"},
		func(topic string, key, value []byte) {
			rec := &engine.Record{Topic: topic, Key: key, Value: value, Timestamp: time.Now()}
			if err := pool.Submit(rec); err != nil {
				log.Printf("Dropping record: %v", err)
			}
		})
	if err := follower.Start(); err != nil {
		log.Fatalf("Failed to start follower: %v", err)
	}

	server := api.NewMetricsServer(metricsAddr)
	server.StartAsync()
	log.Printf("Consuming %s, metrics on %s, evictions published on %s",
		upstreamAddr, metricsAddr, publishAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	follower.Stop()
	pool.Shutdown()
	publisher.Stop()
	if err := server.Stop(); err != nil {
		log.Printf("Metrics server stop: %v", err)
	}
	if err := sessions.Close(); err != nil {
		log.Printf("Store close: %v", err)
	}
	log.Println("Stopped.")
}

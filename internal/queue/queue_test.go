package queue

import (
	"testing"
	"time"

	"github.com/storefront-next/internal/config"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("disabled client should report disabled")
	}
	if err := client.EnqueueGuestCartPurge(SnapshotPurgePayload{Before: time.Now().Unix()}, time.Minute); err != nil {
		t.Fatalf("disabled enqueue should be a no-op, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestSnapshotPurgeTaskPayload(t *testing.T) {
	before := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task, err := NewDeviceSessionPurgeTask(SnapshotPurgePayload{Before: before.Unix()})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskDeviceSessionPurge {
		t.Fatalf("task type want %s got %s", TaskDeviceSessionPurge, task.Type())
	}
	payload, err := ParseSnapshotPurgePayload(task)
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if !payload.BeforeTime().Equal(before) {
		t.Fatalf("before want %s got %s", before, payload.BeforeTime())
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("concurrency want 10 got %d", cfg.Concurrency)
	}
	if cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("default queue missing: %+v", cfg.Queues)
	}
}

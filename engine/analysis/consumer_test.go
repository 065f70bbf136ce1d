package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startNATS(t *testing.T) (*natsserver.Server, *nats.Conn) {
	t.Helper()
	opts := &natsserver.Options{Port: -1}
	ns, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("nats server: %v", err)
	}
	ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("nats connect: %v", err)
	}
	return ns, nc
}

// notifyingRecords signals on a channel whenever a batch is saved, so tests
// can wait on the consumer goroutine instead of sleeping.
type notifyingRecords struct {
	mu    sync.Mutex
	saved []domain.AnalyzedRecord
	done  chan struct{}
}

func (n *notifyingRecords) SaveBatch(_ context.Context, records []domain.AnalyzedRecord) ([]string, error) {
	n.mu.Lock()
	n.saved = append(n.saved, records...)
	n.mu.Unlock()
	n.done <- struct{}{}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids, nil
}

func (n *notifyingRecords) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.saved)
}

func TestStartConsumer_ProcessesBatch(t *testing.T) {
	ns, nc := startNATS(t)
	defer ns.Shutdown()
	defer nc.Close()

	records := &notifyingRecords{done: make(chan struct{}, 4)}
	o, _, _ := newTestOrchestrator(t, func(d *Deps) { d.Records = records })

	sub, err := StartConsumer(nc, o, nil)
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	req := BatchRequest{
		Employee:  "Asha",
		Documents: []domain.Document{{ID: "inv-1", Content: "Lunch ₹100"}},
	}
	data, _ := json.Marshal(req)
	nc.Publish(AnalyzeSubject, data)
	nc.Flush()

	select {
	case <-records.done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch never processed")
	}
	records.mu.Lock()
	defer records.mu.Unlock()
	if len(records.saved) != 1 || records.saved[0].Employee != "Asha" {
		t.Errorf("saved = %+v", records.saved)
	}
}

func TestStartConsumer_InvalidJSONDropped(t *testing.T) {
	ns, nc := startNATS(t)
	defer ns.Shutdown()
	defer nc.Close()

	records := &notifyingRecords{done: make(chan struct{}, 4)}
	o, _, _ := newTestOrchestrator(t, func(d *Deps) { d.Records = records })

	sub, err := StartConsumer(nc, o, nil)
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	// Garbage is dropped without republish; the consumer keeps serving.
	nc.Publish(AnalyzeSubject, []byte("not json"))
	req := BatchRequest{
		Employee:  "Ravi",
		Documents: []domain.Document{{ID: "inv-1", Content: "Cab ₹90"}},
	}
	data, _ := json.Marshal(req)
	nc.Publish(AnalyzeSubject, data)
	nc.Flush()

	select {
	case <-records.done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer stopped after malformed message")
	}
	if got := records.count(); got != 1 {
		t.Errorf("saved batches = %d, want 1", got)
	}
}

func TestStartConsumer_RetryRepublish(t *testing.T) {
	ns, nc := startNATS(t)
	defer ns.Shutdown()
	defer nc.Close()

	o, _, _ := newTestOrchestrator(t, nil)

	// Observe republished messages on the analyze subject.
	retried := make(chan string, MaxRetries)
	obs, err := nc.Subscribe(AnalyzeSubject, func(msg *nats.Msg) {
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				retried <- v
			}
		}
	})
	if err != nil {
		t.Fatalf("observer subscribe: %v", err)
	}
	defer obs.Unsubscribe()

	sub, err := StartConsumer(nc, o, nil)
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	// Empty employee fails validation, so the batch keeps failing.
	req := BatchRequest{Documents: []domain.Document{{ID: "inv-1", Content: "x"}}}
	data, _ := json.Marshal(req)
	nc.Publish(AnalyzeSubject, data)
	nc.Flush()

	select {
	case v := <-retried:
		if v != "1" {
			t.Errorf("first republish retry count = %q, want 1", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a republished message with a retry header")
	}
}

func TestStartConsumer_DLQAfterMaxRetries(t *testing.T) {
	ns, nc := startNATS(t)
	defer ns.Shutdown()
	defer nc.Close()

	o, _, _ := newTestOrchestrator(t, nil)

	dlqReceived := make(chan DLQMessage, 1)
	dlqSub, err := nc.Subscribe(DLQSubject, func(msg *nats.Msg) {
		var dlq DLQMessage
		if err := json.Unmarshal(msg.Data, &dlq); err != nil {
			t.Errorf("dlq unmarshal: %v", err)
			return
		}
		dlqReceived <- dlq
	})
	if err != nil {
		t.Fatalf("dlq subscribe: %v", err)
	}
	defer dlqSub.Unsubscribe()

	sub, err := StartConsumer(nc, o, nil)
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	// One failure away from the DLQ.
	req := BatchRequest{Documents: []domain.Document{{ID: "inv-1", Content: "x"}}}
	data, _ := json.Marshal(req)
	msg := nats.NewMsg(AnalyzeSubject)
	msg.Data = data
	msg.Header = nats.Header{}
	msg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", MaxRetries-1))
	nc.PublishMsg(msg)
	nc.Flush()

	select {
	case dlq := <-dlqReceived:
		if dlq.Retries != MaxRetries {
			t.Errorf("dlq retries = %d, want %d", dlq.Retries, MaxRetries)
		}
		if dlq.Error == "" {
			t.Error("dlq message should carry the batch error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected DLQ message")
	}
}

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const (
	// AnalyzeSubject is the NATS subject for incoming batch requests.
	AnalyzeSubject = "claims.analyze"
	// DLQSubject is the dead letter queue for batches that keep failing.
	DLQSubject = "claims.analyze.dlq"
	// MaxRetries before a failing batch is sent to the DLQ.
	MaxRetries = 3
)

// DLQMessage is published to the DLQ on repeated failure.
type DLQMessage struct {
	Request BatchRequest `json:"request"`
	Error   string       `json:"error"`
	Retries int          `json:"retries"`
}

// StartConsumer subscribes the orchestrator to the analyze subject. Failing
// batches are re-published with an incremented retry header and land in the
// DLQ after MaxRetries.
func StartConsumer(nc *nats.Conn, o *Orchestrator, log *slog.Logger) (*nats.Subscription, error) {
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(AnalyzeSubject, func(msg *nats.Msg) {
		var req BatchRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Error("analysis: unmarshal failed", "err", err)
			return
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := o.AnalyzeBatch(context.Background(), req)
		if result.Status != StatusError {
			log.Info("analysis: batch processed", "employee", req.Employee, "documents", result.Total)
			if msg.Reply != "" {
				_ = msg.Ack()
			}
			return
		}

		retries++
		log.Error("analysis: batch failed",
			"employee", req.Employee,
			"error", result.Error,
			"retry", retries,
		)

		if retries >= MaxRetries {
			dlq := DLQMessage{Request: req, Error: result.Error, Retries: retries}
			data, _ := json.Marshal(dlq)
			if err := nc.Publish(DLQSubject, data); err != nil {
				log.Error("analysis: DLQ publish failed", "err", err)
			}
		} else {
			retryMsg := nats.NewMsg(AnalyzeSubject)
			retryMsg.Data = msg.Data
			retryMsg.Header = nats.Header{}
			retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
			if err := nc.PublishMsg(retryMsg); err != nil {
				log.Error("analysis: retry publish failed", "err", err)
			}
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}

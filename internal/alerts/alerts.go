// Package alerts publishes anomaly notifications to Kafka after detection.
// Disabled by default; deployments that feed downstream review queues enable
// it in config.
package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/model"
)

// Alert is the message body published for one flagged facility.
type Alert struct {
	RunID             string    `json:"run_id"`
	FacilityID        string    `json:"facility_id"`
	FacilityName      string    `json:"facility_name"`
	Industry          string    `json:"industry"`
	RiskScore         float64   `json:"risk_score"`
	AnomalyConfidence float64   `json:"anomaly_confidence"`
	TotalReleaseKG    float64   `json:"total_release_kg"`
	CarcinogenCount   int       `json:"carcinogen_count"`
	DetectedAt        time.Time `json:"detected_at"`
}

// Publisher produces anomaly alerts to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Kafka producer for the configured alert topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w}
}

// PublishAnomalies pushes one message per flagged facility in a single
// WriteMessages call. Returns the number of alerts published.
func (p *Publisher) PublishAnomalies(ctx context.Context, runID string, records []model.FacilityRecord) (int, error) {
	msgs, err := buildMessages(runID, records, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, eris.Wrap(err, "alerts: publish anomalies")
	}

	zap.L().Info("anomaly alerts published",
		zap.String("topic", p.writer.Topic),
		zap.Int("count", len(msgs)),
	)
	return len(msgs), nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// buildMessages serializes the flagged subset of records. Keying by facility
// id keeps repeat alerts for one facility on the same partition.
func buildMessages(runID string, records []model.FacilityRecord, at time.Time) ([]kafkago.Message, error) {
	var msgs []kafkago.Message
	for _, rec := range records {
		if !rec.Anomaly {
			continue
		}

		alert := Alert{
			RunID:             runID,
			FacilityID:        rec.FacilityID,
			FacilityName:      rec.FacilityName,
			Industry:          rec.Industry,
			RiskScore:         rec.RiskScore,
			AnomalyConfidence: rec.AnomalyConfidence,
			TotalReleaseKG:    rec.TotalReleaseKG,
			CarcinogenCount:   rec.CarcinogenCount,
			DetectedAt:        at,
		}
		data, err := json.Marshal(alert)
		if err != nil {
			return nil, eris.Wrapf(err, "alerts: serialize alert for %s", rec.FacilityID)
		}

		msgs = append(msgs, kafkago.Message{
			Key:   []byte(rec.FacilityID),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "event_type", Value: []byte("facility_anomaly")},
				{Key: "source", Value: []byte("chemrisk-cli")},
			},
		})
	}
	return msgs, nil
}

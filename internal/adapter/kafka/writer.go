package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/siting-explorer/internal/config"
	"github.com/couchcryptid/siting-explorer/internal/domain"
)

// Writer publishes map layers to the rendering topic, one message per county.
// It implements pipeline.LayerSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured layer topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaLayerTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// countyMessage is the wire form of one rendered county.
type countyMessage struct {
	domain.CountyCell
	Priority    string    `json:"priority"`
	ColorScale  string    `json:"color_scale"`
	Market      string    `json:"market,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PublishLayer writes every county of the layer in a single WriteMessages
// call. Messages are keyed by FIPS so each county stays on one partition.
func (w *Writer) PublishLayer(ctx context.Context, layer *domain.MapLayer) error {
	if len(layer.Counties) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(layer.Counties))
	for i, c := range layer.Counties {
		msg, err := serializeToMessage(layer, c)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write layer %s: %w", layer.Priority, err)
	}
	w.logger.Debug("layer published", "priority", layer.Priority, "counties", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one county of a layer into a Kafka message.
func serializeToMessage(layer *domain.MapLayer, c domain.CountyCell) (kafkago.Message, error) {
	data, err := json.Marshal(countyMessage{
		CountyCell:  c,
		Priority:    layer.Priority,
		ColorScale:  layer.ColorScale,
		Market:      layer.Market,
		GeneratedAt: layer.GeneratedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize county %s: %w", c.FIPS, err)
	}
	return kafkago.Message{
		Key:   []byte(c.FIPS),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "priority", Value: []byte(layer.Priority)},
			{Key: "generated_at", Value: []byte(layer.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}

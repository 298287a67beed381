package payrail

import (
	"context"

	"github.com/payrail-labs/payrail/schema"
	"github.com/segmentio/kafka-go"
)

const PaymentTopic = "payrail_payment"

// KWriter streams payment events to kafka as an optional event sink.
type KWriter struct {
	w *kafka.Writer
}

func NewKWriter(topic string, uri string) (*KWriter, error) {
	w := &kafka.Writer{
		Addr:     kafka.TCP(uri),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KWriter{
		w: w,
	}, nil
}

func (kw *KWriter) Name() string {
	return "kafka"
}

func (kw *KWriter) Deliver(evt schema.PaymentEvent) error {
	return kw.w.WriteMessages(
		context.Background(),
		kafka.Message{
			Key:   []byte(evt.Nonce),
			Value: marshalEvent(evt),
		},
	)
}

func (kw *KWriter) Close() {
	kw.w.Close()
}

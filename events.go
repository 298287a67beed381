package payrail

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/payrail-labs/payrail/schema"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"
)

// EventSink delivers one payment event to an external system.
type EventSink interface {
	Deliver(evt schema.PaymentEvent) error
	Name() string
}

// WebhookSink POSTs events as JSON to a configured URL. Slow or failing
// endpoints only ever cost the worker that carries the event.
type WebhookSink struct {
	cli *gentleman.Client
}

func NewWebhookSink(url string) *WebhookSink {
	cli := gentleman.New().URL(url)
	cli.Use(timeout.Request(5 * time.Second))
	return &WebhookSink{cli: cli}
}

func (s *WebhookSink) Name() string {
	return "webhook"
}

func (s *WebhookSink) Deliver(evt schema.PaymentEvent) error {
	req := s.cli.Post()
	req.Use(body.JSON(evt))
	resp, err := req.Send()
	if err != nil {
		return err
	}
	defer resp.Close()
	if !resp.Ok {
		return errors.New("webhook resp failed: " + resp.String())
	}
	return nil
}

// Dispatcher decouples event delivery from the verification critical path:
// Dispatch never blocks, a bounded queue feeds an ants worker pool, and a
// full queue drops the event rather than stall a payment.
type Dispatcher struct {
	pool  *ants.Pool
	sinks []EventSink
	queue chan schema.PaymentEvent
	quit  chan struct{}
}

func NewDispatcher(workers int, sinks ...EventSink) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 10
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		pool:  pool,
		sinks: sinks,
		queue: make(chan schema.PaymentEvent, 1024),
		quit:  make(chan struct{}),
	}
	go d.run()
	return d, nil
}

func (d *Dispatcher) Dispatch(evt schema.PaymentEvent) {
	select {
	case d.queue <- evt:
	default:
		metricEventDropped()
		log.Warn("event queue full, dropped", "type", evt.Type, "nonce", evt.Nonce)
	}
}

func (d *Dispatcher) run() {
	for {
		select {
		case evt := <-d.queue:
			for _, sink := range d.sinks {
				sink := sink
				err := d.pool.Submit(func() {
					if err := sink.Deliver(evt); err != nil {
						metricEventFailed(sink.Name())
						log.Error("deliver event", "err", err, "sink", sink.Name(), "type", evt.Type)
					}
				})
				if err != nil {
					metricEventDropped()
					log.Warn("event pool saturated, dropped", "sink", sink.Name())
				}
			}
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) Close() {
	close(d.quit)
	d.pool.Release()
}

func marshalEvent(evt schema.PaymentEvent) []byte {
	by, err := json.Marshal(evt)
	if err != nil {
		log.Error("marshal payment event", "err", err, "type", evt.Type, "nonce", evt.Nonce)
	}
	return by
}

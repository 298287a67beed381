package payrail

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/payrail-labs/payrail/schema"
	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	mu     sync.Mutex
	events []schema.PaymentEvent
}

func (s *recordSink) Name() string { return "record" }

func (s *recordSink) Deliver(evt schema.PaymentEvent) error {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	return nil
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDelivers(t *testing.T) {
	sink := &recordSink{}
	d, err := NewDispatcher(2, sink)
	assert.NoError(t, err)
	defer d.Close()

	for i := 0; i < 5; i++ {
		d.Dispatch(schema.PaymentEvent{
			Type:  schema.EventPaymentVerified,
			Nonce: "0x01",
		})
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 5, sink.count())
	assert.Equal(t, schema.EventPaymentVerified, sink.events[0].Type)
}

func TestMarshalEvent(t *testing.T) {
	evt := schema.PaymentEvent{
		Type:         schema.EventPaymentVerified,
		Confirmation: "conf-1",
		Nonce:        "0x01",
		Amount:       "100000",
	}
	by := marshalEvent(evt)
	assert.NotEmpty(t, by)

	var got schema.PaymentEvent
	assert.NoError(t, json.Unmarshal(by, &got))
	assert.Equal(t, evt, got)
}

func TestVerifierEmitsEvents(t *testing.T) {
	sink := &recordSink{}
	d, err := NewDispatcher(2, sink)
	assert.NoError(t, err)
	defer d.Close()

	replay := NewReplayStore(time.Hour, nil)
	v := NewVerifier(replay, nil, d)

	req := newTestRequirement(t, "0.10", schema.SchemeExact)
	_, err = v.Verify(schema.PaymentAuthorization{
		From:        "0x1111111111111111111111111111111111111111",
		To:          req.Recipient,
		Value:       "100000",
		Token:       req.Token,
		ChainId:     req.ChainId,
		Nonce:       req.Nonce,
		ValidBefore: 1, // expired
		Signature:   "0xff",
	}, req)
	assert.Equal(t, ErrExpired, err)

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, schema.EventPaymentRejected, sink.events[0].Type)
	assert.Equal(t, ErrExpired.Error(), sink.events[0].Reason)
}

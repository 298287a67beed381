package payrail

import (
	"testing"
	"time"

	"github.com/payrail-labs/payrail/schema"
	"github.com/stretchr/testify/assert"
)

func newTestWdb(t *testing.T) *Wdb {
	w := NewSqliteDb(t.TempDir())
	assert.NoError(t, w.Migrate())
	return w
}

func TestWdbPaymentLifecycle(t *testing.T) {
	w := newTestWdb(t)
	defer w.Close()

	record := schema.PaymentRecord{
		Confirmation: "conf-1",
		Nonce:        "0x01",
		Payer:        "0x1111111111111111111111111111111111111111",
		Recipient:    testRecipient,
		Token:        testToken.Address,
		ChainId:      8453,
		Amount:       "100000",
		Scheme:       schema.SchemeExact,
		Status:       schema.StatusVerified,
	}
	assert.NoError(t, w.InsertPayment(record))
	assert.True(t, w.ExistNonce("0x01"))
	assert.False(t, w.ExistNonce("0x02"))

	got, err := w.GetPayment("conf-1")
	assert.NoError(t, err)
	assert.Equal(t, "100000", got.Amount)

	// the nonce unique index closes the DB-level replay door too
	assert.Error(t, w.InsertPayment(record))

	total, err := w.CountPayments()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)

	records, err := w.GetPaymentsAfter(0, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(records))
	records, err = w.GetPaymentsAfter(records[0].ID, 10)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(records))
}

func TestWdbPayerStats(t *testing.T) {
	w := newTestWdb(t)
	defer w.Close()

	stat := schema.PayerStat{
		Address:    "0x1111111111111111111111111111111111111111",
		Token:      testToken.Address,
		Total:      "100000",
		Count:      1,
		LastPaidAt: time.Now(),
	}
	assert.NoError(t, w.UpsertPayerStat(stat))

	stat.Total = "200000"
	stat.Count = 2
	assert.NoError(t, w.UpsertPayerStat(stat))

	got, err := w.GetPayerStat(stat.Address, stat.Token)
	assert.NoError(t, err)
	assert.Equal(t, "200000", got.Total)
	assert.Equal(t, int64(2), got.Count)

	top, err := w.GetTopPayers(5)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(top))
}

func TestWdbArchive(t *testing.T) {
	w := newTestWdb(t)
	defer w.Close()

	assert.NoError(t, w.InsertPayment(schema.PaymentRecord{
		Confirmation: "conf-old",
		Nonce:        "0x0a",
		Payer:        "0x11",
		Amount:       "1",
		Status:       schema.StatusVerified,
	}))

	records, err := w.GetUnarchivedBefore(time.Now().Add(time.Minute), 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(records))

	assert.NoError(t, w.MarkArchived([]uint{records[0].ID}))
	records, err = w.GetUnarchivedBefore(time.Now().Add(time.Minute), 10)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(records))

	got, err := w.GetPayment("conf-old")
	assert.NoError(t, err)
	assert.Equal(t, schema.StatusArchived, got.Status)
}

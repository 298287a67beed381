package payrail

import (
	"encoding/json"
	"time"

	"github.com/payrail-labs/payrail/schema"
	"github.com/shopspring/decimal"
)

func (s *Payrail) runJobs() {
	s.scheduler.Every(1).Minute().SingletonMode().Do(s.sweepReplay)
	s.scheduler.Every(5).Minute().SingletonMode().Do(s.rollupPayerStats)
	s.scheduler.Every(10).Minute().SingletonMode().Do(s.archiveReceipts)

	s.scheduler.StartAsync()
}

func (s *Payrail) sweepReplay() {
	s.replay.Sweep()
	metricReplayEntries(s.replay.Len())
}

// rollupPayerStats folds newly verified payments into per-payer aggregates.
// The watermark lives in memory; after a restart the rollup re-reads from
// zero and the upsert keeps aggregates idempotent per record id.
func (s *Payrail) rollupPayerStats() {
	if s.wdb == nil {
		return
	}
	records, err := s.wdb.GetPaymentsAfter(s.statMark, 500)
	if err != nil {
		log.Error("s.wdb.GetPaymentsAfter(s.statMark, 500)", "err", err)
		return
	}
	for _, record := range records {
		stat, err := s.wdb.GetPayerStat(record.Payer, record.Token)
		if err != nil {
			stat = schema.PayerStat{
				Address: record.Payer,
				Token:   record.Token,
				Total:   "0",
			}
		}
		total, err := decimal.NewFromString(stat.Total)
		if err != nil {
			total = decimal.Zero
		}
		amount, err := decimal.NewFromString(record.Amount)
		if err != nil {
			log.Error("payment record amount unparsable", "id", record.ID, "amount", record.Amount)
			continue
		}
		stat.Total = total.Add(amount).String()
		stat.Count++
		stat.LastPaidAt = record.CreatedAt
		if err := s.wdb.UpsertPayerStat(stat); err != nil {
			log.Error("s.wdb.UpsertPayerStat(stat)", "err", err, "payer", stat.Address)
			return
		}
		s.statMark = record.ID
	}
}

// archiveReceipts copies day-old verified records into the rawdb receipt
// archive, then marks them archived in the write DB.
func (s *Payrail) archiveReceipts() {
	if s.wdb == nil || s.store == nil {
		return
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	records, err := s.wdb.GetUnarchivedBefore(cutoff, 500)
	if err != nil {
		log.Error("s.wdb.GetUnarchivedBefore(cutoff, 500)", "err", err)
		return
	}
	archived := make([]uint, 0, len(records))
	for _, record := range records {
		by, err := json.Marshal(record)
		if err != nil {
			continue
		}
		if err := s.store.Put(schema.ReceiptBucket, record.Confirmation, by); err != nil {
			log.Error("archive receipt", "err", err, "confirmation", record.Confirmation)
			continue
		}
		archived = append(archived, record.ID)
	}
	if err := s.wdb.MarkArchived(archived); err != nil {
		log.Error("s.wdb.MarkArchived(archived)", "err", err)
	}
}

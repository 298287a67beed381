package payrail

import (
	"os"
	"path"
	"time"

	"github.com/payrail-labs/payrail/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sqliteName = "payrail.sqlite"

type Wdb struct {
	Db *gorm.DB
}

func NewWdb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		panic(err)
	}
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.PaymentRecord{}, &schema.PayerStat{})
}

func (w *Wdb) InsertPayment(record schema.PaymentRecord) error {
	return w.Db.Create(&record).Error
}

func (w *Wdb) GetPayment(confirmation string) (res schema.PaymentRecord, err error) {
	err = w.Db.Where("confirmation = ?", confirmation).First(&res).Error
	return
}

func (w *Wdb) ExistNonce(nonce string) bool {
	var count int64
	w.Db.Model(&schema.PaymentRecord{}).Where("nonce = ?", nonce).Count(&count)
	return count > 0
}

// GetPaymentsAfter returns verified records created after the watermark id,
// oldest first, for the payer rollup and receipt archive jobs.
func (w *Wdb) GetPaymentsAfter(id uint, limit int) ([]schema.PaymentRecord, error) {
	records := make([]schema.PaymentRecord, 0, limit)
	err := w.Db.Where("id > ? and status = ?", id, schema.StatusVerified).
		Order("id asc").Limit(limit).Find(&records).Error
	return records, err
}

func (w *Wdb) UpsertPayerStat(stat schema.PayerStat) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}, {Name: "token"}},
		UpdateAll: true,
	}).Create(&stat).Error
}

func (w *Wdb) GetPayerStat(address, token string) (res schema.PayerStat, err error) {
	err = w.Db.Where("address = ? and token = ?", address, token).First(&res).Error
	return
}

func (w *Wdb) GetTopPayers(limit int) ([]schema.PayerStat, error) {
	stats := make([]schema.PayerStat, 0, limit)
	err := w.Db.Order("count desc").Limit(limit).Find(&stats).Error
	return stats, err
}

func (w *Wdb) CountPayments() (total int64, err error) {
	err = w.Db.Model(&schema.PaymentRecord{}).Count(&total).Error
	return
}

// GetUnarchivedBefore returns verified records older than t that have not
// been copied into the rawdb receipt archive yet.
func (w *Wdb) GetUnarchivedBefore(t time.Time, limit int) ([]schema.PaymentRecord, error) {
	records := make([]schema.PaymentRecord, 0, limit)
	err := w.Db.Where("created_at < ? and status = ?", t, schema.StatusVerified).
		Order("id asc").Limit(limit).Find(&records).Error
	return records, err
}

func (w *Wdb) MarkArchived(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return w.Db.Model(&schema.PaymentRecord{}).
		Where("id in ?", ids).
		Update("status", schema.StatusArchived).Error
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

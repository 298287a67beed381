package config

import (
	"os"
	"path"

	"github.com/payrail-labs/payrail/config/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sqliteName = "payrail-config.sqlite"

type Wdb struct {
	Db *gorm.DB
}

func NewWdb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		panic(err)
	}
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.RoutePrice{})
}

func (w *Wdb) GetRoutePrices() ([]schema.RoutePrice, error) {
	res := make([]schema.RoutePrice, 0, 10)
	err := w.Db.Find(&res).Error
	return res, err
}

func (w *Wdb) UpsertRoutePrice(rp schema.RoutePrice) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "route"}},
		UpdateAll: true,
	}).Create(&rp).Error
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

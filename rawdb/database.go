package rawdb

import (
	"github.com/inconshreveable/log15"
)

var log = log15.New("module", "payrail/rawdb")

// KeyValueDB is the durable KV layer behind the replay store and the
// receipt archive. Bolt is the default backend; S3 serves deployments
// where the local disk is ephemeral.
type KeyValueDB interface {
	Put(bucket, key string, value []byte) (err error)

	Get(bucket, key string) (data []byte, err error)

	GetAllKey(bucket string) (keys []string, err error)

	Delete(bucket, key string) (err error)

	Exist(bucket, key string) bool

	Close() (err error)

	Type() string
}

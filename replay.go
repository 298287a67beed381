package payrail

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/payrail-labs/payrail/rawdb"
	"github.com/payrail-labs/payrail/schema"
)

const replayShardCount = 32

type replayShard struct {
	mu      sync.Mutex
	entries map[string]time.Time // nonce -> insertedAt
}

// ReplayStore admits each nonce at most once for the life of its TTL.
// It is sharded so unrelated nonces never contend on one lock, and the
// sweep locks a single shard at a time.
//
// When a rawdb store is attached, consumed nonces are mirrored there so a
// restart does not reopen the replay window. Mirror failures are logged and
// never fail admission.
type ReplayStore struct {
	ttl    time.Duration
	clock  func() time.Time
	shards [replayShardCount]*replayShard
	db     rawdb.KeyValueDB
}

func NewReplayStore(ttl time.Duration, db rawdb.KeyValueDB) *ReplayStore {
	if ttl <= 0 {
		ttl = schema.DefaultReplayTTL
	}
	r := &ReplayStore{
		ttl:   ttl,
		clock: time.Now,
		db:    db,
	}
	for i := range r.shards {
		r.shards[i] = &replayShard{entries: make(map[string]time.Time)}
	}
	if db != nil {
		r.reload()
	}
	return r
}

func normalizeNonce(nonce string) string {
	return strings.ToLower(strings.TrimPrefix(nonce, "0x"))
}

func (r *ReplayStore) shard(nonce string) *replayShard {
	h := fnv.New32a()
	h.Write([]byte(nonce))
	return r.shards[h.Sum32()%replayShardCount]
}

// TryInsert commits the nonce if and only if it has never been admitted
// within its TTL. Check and insert happen under one shard lock; the first
// committer wins under any interleaving.
func (r *ReplayStore) TryInsert(nonce string) bool {
	key := normalizeNonce(nonce)
	now := r.clock()
	shard := r.shard(key)

	shard.mu.Lock()
	if insertedAt, ok := shard.entries[key]; ok && now.Sub(insertedAt) < r.ttl {
		shard.mu.Unlock()
		return false
	}
	shard.entries[key] = now
	shard.mu.Unlock()

	if r.db != nil {
		val := []byte(strconv.FormatInt(now.Unix(), 10))
		if err := r.db.Put(schema.NonceBucket, key, val); err != nil {
			log.Error("mirror nonce to rawdb", "err", err)
		}
	}
	return true
}

// Has reports whether the nonce is currently consumed.
func (r *ReplayStore) Has(nonce string) bool {
	key := normalizeNonce(nonce)
	shard := r.shard(key)
	shard.mu.Lock()
	insertedAt, ok := shard.entries[key]
	shard.mu.Unlock()
	return ok && r.clock().Sub(insertedAt) < r.ttl
}

// Len returns the number of resident entries, expired ones included until
// the next sweep.
func (r *ReplayStore) Len() int {
	n := 0
	for _, shard := range r.shards {
		shard.mu.Lock()
		n += len(shard.entries)
		shard.mu.Unlock()
	}
	return n
}

// Sweep evicts entries older than the TTL, one shard at a time. A failed
// mirror delete is logged and retried on the next sweep.
func (r *ReplayStore) Sweep() {
	now := r.clock()
	for _, shard := range r.shards {
		expired := make([]string, 0)
		shard.mu.Lock()
		for nonce, insertedAt := range shard.entries {
			if now.Sub(insertedAt) >= r.ttl {
				delete(shard.entries, nonce)
				expired = append(expired, nonce)
			}
		}
		shard.mu.Unlock()

		if r.db == nil {
			continue
		}
		for _, nonce := range expired {
			if err := r.db.Delete(schema.NonceBucket, nonce); err != nil {
				log.Error("evict nonce from rawdb", "err", err, "nonce", nonce)
			}
		}
	}
}

func (r *ReplayStore) reload() {
	keys, err := r.db.GetAllKey(schema.NonceBucket)
	if err != nil {
		if err != schema.ErrNotExist {
			log.Error("reload nonces from rawdb", "err", err)
		}
		return
	}
	now := r.clock()
	restored := 0
	for _, key := range keys {
		val, err := r.db.Get(schema.NonceBucket, key)
		if err != nil {
			continue
		}
		sec, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			continue
		}
		insertedAt := time.Unix(sec, 0)
		if now.Sub(insertedAt) >= r.ttl {
			continue
		}
		shard := r.shard(key)
		shard.mu.Lock()
		shard.entries[key] = insertedAt
		shard.mu.Unlock()
		restored++
	}
	log.Info("replay store reloaded", "restored", restored, "scanned", len(keys))
}

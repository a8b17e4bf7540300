// Package presence keeps the ephemeral online/last-seen/connection-set state
// in Redis with a TTL, backed by the durable user record when the cache entry
// has expired. Presence is advisory: the TTL bounds how stale it can get when
// a process dies without announcing its users offline.
package presence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vinodkrishna221/nexuschat/logger"
	userstore "github.com/vinodkrishna221/nexuschat/module/user/store"
	"github.com/vinodkrishna221/nexuschat/tools/errs"
)

const keyPrefix = "presence:"

const durableTimeout = 3 * time.Second

// Record is the cache-resident presence entry. Online is true iff ConnIDs is
// non-empty; an absent record means offline.
type Record struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
	ConnIDs  []string  `json:"connIds"`
}

type Cache struct {
	rdb     *redis.Client
	durable userstore.UserStore
	ttl     time.Duration
}

func NewCache(rdb *redis.Client, durable userstore.UserStore, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, durable: durable, ttl: ttl}
}

func key(userID string) string { return keyPrefix + userID }

// applyOnline merges a new connection into rec and reports whether this is
// the offline→online transition.
func applyOnline(rec *Record, connID string, at time.Time) (first bool) {
	first = !rec.Online || len(rec.ConnIDs) == 0
	for _, id := range rec.ConnIDs {
		if id == connID {
			connID = ""
			break
		}
	}
	if connID != "" {
		rec.ConnIDs = append(rec.ConnIDs, connID)
	}
	rec.Online = true
	rec.LastSeen = at
	return first
}

// applyDisconnect drops a connection from rec and reports whether the user is
// now fully offline.
func applyDisconnect(rec *Record, connID string, at time.Time) (offline bool) {
	kept := rec.ConnIDs[:0]
	for _, id := range rec.ConnIDs {
		if id != connID {
			kept = append(kept, id)
		}
	}
	rec.ConnIDs = kept
	if len(kept) > 0 {
		return false
	}
	rec.Online = false
	rec.LastSeen = at
	return true
}

func decodeRecord(cmd *redis.StringCmd) (Record, bool, error) {
	raw, err := cmd.Bytes()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, errs.Wrap(err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, errs.Wrap(err)
	}
	return rec, true, nil
}

func (c *Cache) load(ctx context.Context, userID string) (Record, bool, error) {
	rec, ok, err := decodeRecord(c.rdb.Get(ctx, key(userID)))
	if err != nil {
		return Record{}, false, errs.WrapMsg(err, "presence get", "userID", userID)
	}
	return rec, ok, nil
}

// txRetries bounds the optimistic-locking loop in mutate. Contention on one
// user's key is a handful of their own devices, so collisions are short.
const txRetries = 5

// mutate applies fn to the record under WATCH so the read-modify-write is
// atomic against concurrent connects/disconnects on other instances. When
// the key changes mid-transaction the whole load+merge is retried, so fn
// must be a pure merge and may run more than once.
func (c *Cache) mutate(ctx context.Context, userID string, fn func(rec *Record, exists bool)) (Record, error) {
	k := key(userID)
	var out Record
	for i := 0; i < txRetries; i++ {
		err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
			rec, exists, err := decodeRecord(tx.Get(ctx, k))
			if err != nil {
				return err
			}
			fn(&rec, exists)
			raw, err := json.Marshal(rec)
			if err != nil {
				return errs.Wrap(err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, k, raw, c.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			out = rec
			return nil
		}, k)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return Record{}, errs.WrapMsg(err, "presence update", "userID", userID)
		}
		return out, nil
	}
	return Record{}, errs.WrapMsg(redis.TxFailedErr, "presence update contention", "userID", userID)
}

// SetOnline registers a connection and reports whether the user just went
// from offline to online. The durable record is updated out of band; a lost
// update there is repaired by the next connect or disconnect.
func (c *Cache) SetOnline(ctx context.Context, userID, connID string) (first bool, err error) {
	now := time.Now()
	rec, err := c.mutate(ctx, userID, func(rec *Record, _ bool) {
		first = applyOnline(rec, connID, now)
	})
	if err != nil {
		return false, err
	}
	if first {
		go func() {
			dctx, cancel := context.WithTimeout(context.Background(), durableTimeout)
			defer cancel()
			if err := c.durable.SetOnline(dctx, userID, rec.LastSeen); err != nil {
				logger.Warnf("durable online update failed: user=%s err=%v", userID, err)
			}
		}()
	}
	return first, nil
}

// RemoveConnection drops a connection and reports whether the user is now
// fully offline, along with the last-seen timestamp that was recorded — the
// same value later presence queries return, so callers broadcast exactly it.
// An absent record already means offline, so a miss still counts as the
// final disconnect. The durable last-seen write is awaited: it is the value
// peers fall back to once the cache entry expires.
func (c *Cache) RemoveConnection(ctx context.Context, userID, connID string) (offline bool, lastSeen time.Time, err error) {
	now := time.Now()
	rec, err := c.mutate(ctx, userID, func(rec *Record, exists bool) {
		if !exists {
			*rec = Record{LastSeen: now}
			offline = true
			return
		}
		offline = applyDisconnect(rec, connID, now)
	})
	if err != nil {
		return false, time.Time{}, err
	}
	if offline {
		if err := c.durable.SetOffline(ctx, userID, rec.LastSeen); err != nil {
			logger.Warnf("durable offline update failed: user=%s err=%v", userID, err)
		}
	}
	return offline, rec.LastSeen, nil
}

// Heartbeat extends the TTL of an existing record. EXPIRE on a missing key
// does nothing, so a heartbeat arriving after expiry is silently dropped and
// the client has to re-announce via SetOnline.
func (c *Cache) Heartbeat(ctx context.Context, userID string) error {
	return errs.WrapMsg(c.rdb.Expire(ctx, key(userID), c.ttl).Err(), "presence heartbeat", "userID", userID)
}

// Get returns the cached record, falling back to the durable snapshot with an
// empty connection set when the cache has no entry or is unreachable.
func (c *Cache) Get(ctx context.Context, userID string) (Record, error) {
	rec, ok, err := c.load(ctx, userID)
	if err != nil {
		logger.Warnf("presence cache degraded, using durable record: user=%s err=%v", userID, err)
	} else if ok {
		return rec, nil
	}
	fields, err := c.durable.Presence(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	return Record{Online: fields.Online, LastSeen: fields.LastSeen}, nil
}

// BulkGet looks up many users in one round trip. Users with no cache entry
// are omitted; callers treat absence as unknown/offline.
func (c *Cache) BulkGet(ctx context.Context, userIDs []string) (map[string]Record, error) {
	if len(userIDs) == 0 {
		return map[string]Record{}, nil
	}
	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = pipe.Get(ctx, key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, errs.WrapMsg(err, "presence bulk get")
	}

	out := make(map[string]Record, len(userIDs))
	for i, cmd := range cmds {
		raw, err := cmd.Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, errs.WrapMsg(err, "presence bulk get", "userID", userIDs[i])
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warnf("presence record corrupt, skipping: user=%s err=%v", userIDs[i], err)
			continue
		}
		out[userIDs[i]] = rec
	}
	return out, nil
}

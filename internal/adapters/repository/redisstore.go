package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/unicitynetwork/Boxy-Run/pkg/metrics"
)

const redisBackend = "redis"

// RedisStore implements Store on Redis.
//
// Layout, all under a configurable key prefix:
//
//	part:<pk>              sorted set of SKs, all scored 0 so lex ranges apply
//	item:<pk>/<sk>         JSON-encoded Item
//	idx:<nickname>/<date>  sorted set of <pk>/<sk> refs scored by item score
//	expiry                 sorted set of <pk>/<sk> refs scored by TTL
//
// PKs and dates never contain '/', which keeps refs and index keys unambiguous.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. prefix namespaces every key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) partKey(pk string) string { return s.prefix + "part:" + pk }
func (s *RedisStore) itemKey(pk, sk string) string {
	return s.prefix + "item:" + ref(pk, sk)
}
func (s *RedisStore) indexKey(nickname, date string) string {
	return s.prefix + "idx:" + nickname + "/" + date
}
func (s *RedisStore) expiryKey() string { return s.prefix + "expiry" }

func ref(pk, sk string) string { return pk + "/" + sk }

func splitRef(r string) (pk, sk string, ok bool) {
	return strings.Cut(r, "/")
}

// Put implements Store.Put.
func (s *RedisStore) Put(ctx context.Context, it Item) error {
	defer observeRedis("put", time.Now())
	if it.PK == "" || it.SK == "" || strings.Contains(it.PK, "/") {
		return ErrInvalidKey
	}
	payload, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.itemKey(it.PK, it.SK), payload, 0)
		pipe.ZAdd(ctx, s.partKey(it.PK), redis.Z{Score: 0, Member: it.SK})
		if it.Indexed() {
			r := ref(it.PK, it.SK)
			pipe.ZAdd(ctx, s.indexKey(it.Nickname, it.Date), redis.Z{Score: float64(it.Score), Member: r})
			pipe.ZAdd(ctx, s.expiryKey(), redis.Z{Score: float64(it.TTL), Member: r})
		}
		return nil
	})
	return s.fail("put", err)
}

// Delete implements Store.Delete.
func (s *RedisStore) Delete(ctx context.Context, pk, sk string) error {
	defer observeRedis("delete", time.Now())
	_, err := s.delete(ctx, pk, sk)
	return s.fail("delete", err)
}

func (s *RedisStore) delete(ctx context.Context, pk, sk string) (bool, error) {
	it, found, err := s.get(ctx, pk, sk)
	if err != nil || !found {
		return false, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		r := ref(pk, sk)
		pipe.Del(ctx, s.itemKey(pk, sk))
		pipe.ZRem(ctx, s.partKey(pk), sk)
		if it.Indexed() {
			pipe.ZRem(ctx, s.indexKey(it.Nickname, it.Date), r)
			pipe.ZRem(ctx, s.expiryKey(), r)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) get(ctx context.Context, pk, sk string) (Item, bool, error) {
	data, err := s.client.Get(ctx, s.itemKey(pk, sk)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Item{}, false, nil
		}
		return Item{}, false, err
	}
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return Item{}, false, fmt.Errorf("decode item %s: %w", ref(pk, sk), err)
	}
	return it, true, nil
}

// load fetches items by ref in order, skipping refs whose item vanished
// between the range read and the fetch.
func (s *RedisStore) load(ctx context.Context, refs []string) ([]Item, error) {
	if len(refs) == 0 {
		return []Item{}, nil
	}
	keys := make([]string, len(refs))
	for i, r := range refs {
		keys[i] = s.prefix + "item:" + r
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var it Item
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", refs[i], err)
		}
		out = append(out, it)
	}
	return out, nil
}

func lexMax(prefix string) string {
	if end := prefixEnd(prefix); end != "" {
		return "(" + end
	}
	return "+"
}

// QueryDesc implements Store.QueryDesc.
func (s *RedisStore) QueryDesc(ctx context.Context, pk, prefix string, limit int) ([]Item, error) {
	defer observeRedis("query", time.Now())
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	sks, err := s.client.ZRevRangeByLex(ctx, s.partKey(pk), &redis.ZRangeBy{
		Min:   "[" + prefix,
		Max:   lexMax(prefix),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, s.fail("query", err)
	}
	refs := make([]string, len(sks))
	for i, sk := range sks {
		refs[i] = ref(pk, sk)
	}
	items, err := s.load(ctx, refs)
	return items, s.fail("query", err)
}

// CountPrefix implements Store.CountPrefix.
func (s *RedisStore) CountPrefix(ctx context.Context, pk, prefix string) (int, error) {
	defer observeRedis("count", time.Now())
	n, err := s.client.ZLexCount(ctx, s.partKey(pk), "["+prefix, lexMax(prefix)).Result()
	return int(n), s.fail("count", err)
}

// CountAbove implements Store.CountAbove.
func (s *RedisStore) CountAbove(ctx context.Context, pk, bound string) (int, error) {
	defer observeRedis("count", time.Now())
	n, err := s.client.ZLexCount(ctx, s.partKey(pk), "("+bound, "+").Result()
	return int(n), s.fail("count", err)
}

// QueryIndex implements Store.QueryIndex.
func (s *RedisStore) QueryIndex(ctx context.Context, nickname, date string, limit int) ([]Item, error) {
	defer observeRedis("query_index", time.Now())
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	refs, err := s.client.ZRevRange(ctx, s.indexKey(nickname, date), 0, stop).Result()
	if err != nil {
		return nil, s.fail("query_index", err)
	}
	items, err := s.load(ctx, refs)
	return items, s.fail("query_index", err)
}

// FindByNickname implements Store.FindByNickname.
func (s *RedisStore) FindByNickname(ctx context.Context, pk, nickname string) ([]Item, error) {
	defer observeRedis("scan", time.Now())
	sks, err := s.client.ZRevRange(ctx, s.partKey(pk), 0, -1).Result()
	if err != nil {
		return nil, s.fail("scan", err)
	}
	refs := make([]string, len(sks))
	for i, sk := range sks {
		refs[i] = ref(pk, sk)
	}
	items, err := s.load(ctx, refs)
	if err != nil {
		return nil, s.fail("scan", err)
	}
	var out []Item
	for _, it := range items {
		if it.Nickname == nickname {
			out = append(out, it)
		}
	}
	return out, nil
}

// Purge implements Store.Purge.
func (s *RedisStore) Purge(ctx context.Context, now time.Time) (int, error) {
	defer observeRedis("purge", time.Now())
	refs, err := s.client.ZRangeByScore(ctx, s.expiryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, s.fail("purge", err)
	}
	purged := 0
	for _, r := range refs {
		pk, sk, ok := splitRef(r)
		if !ok {
			// Unparseable ref: drop it so it is not retried forever.
			s.client.ZRem(ctx, s.expiryKey(), r)
			continue
		}
		deleted, err := s.delete(ctx, pk, sk)
		if err != nil {
			return purged, s.fail("purge", err)
		}
		if !deleted {
			s.client.ZRem(ctx, s.expiryKey(), r)
			continue
		}
		purged++
	}
	return purged, nil
}

func (s *RedisStore) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	metrics.RecordStoreError(redisBackend, op)
	return fmt.Errorf("redis %s: %w", op, err)
}

func observeRedis(op string, start time.Time) {
	metrics.RecordStoreOperation(redisBackend, op, float64(time.Since(start).Microseconds())/1000)
}

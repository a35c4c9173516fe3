package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	goredis "github.com/redis/go-redis/v9"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

const (
	DefaultPrefix = "linkora"
	maxTxRetries  = 3
)

// Repository keeps snapshots as JSON strings and the public profile index
// in two hashes (by username and by profile id). A per-key set records which
// profile ids a snapshot owns so a save can drop entries it no longer has.
type Repository struct {
	client *goredis.Client
	prefix string
}

func NewRepository(ctx context.Context, redisURL string) (*Repository, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewFromClient(client, DefaultPrefix), nil
}

func NewFromClient(client *goredis.Client, prefix string) *Repository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Repository{client: client, prefix: prefix}
}

func (r *Repository) snapshotKey(key string) string { return r.prefix + ":snapshot:" + key }
func (r *Repository) ownedKey(key string) string { return r.prefix + ":owned:" + key }
func (r *Repository) byUsername() string { return r.prefix + ":index:username" }
func (r *Repository) byProfile() string { return r.prefix + ":index:profile" }

func (r *Repository) LoadSnapshot(ctx context.Context, key string) (*domain.Snapshot, error) {
	data, err := r.client.Get(ctx, r.snapshotKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeSnapshot(data)
}

func decodeRefs(vals []interface{}) []*ports.ProfileRef {
	refs := make([]*ports.ProfileRef, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var ref ports.ProfileRef
		if json.Unmarshal([]byte(s), &ref) == nil {
			refs[i] = &ref
		}
	}
	return refs
}

func (r *Repository) hmget(ctx context.Context, tx *goredis.Tx, hash string, fields []string) ([]*ports.ProfileRef, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	vals, err := tx.HMGet(ctx, hash, fields...).Result()
	if err != nil {
		return nil, err
	}
	return decodeRefs(vals), nil
}

// SaveSnapshot writes the snapshot and its index entries in one MULTI.
// Usernames and profile ids claimed by another key move to this one.
func (r *Repository) SaveSnapshot(ctx context.Context, key string, snap *domain.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	refs := ports.IndexEntries(key, snap)
	owned := r.ownedKey(key)

	txf := func(tx *goredis.Tx) error {
		oldIDs, err := tx.SMembers(ctx, owned).Result()
		if err != nil {
			return err
		}
		oldRefs, err := r.hmget(ctx, tx, r.byProfile(), oldIDs)
		if err != nil {
			return err
		}
		var oldNames []string
		for _, ref := range oldRefs {
			if ref != nil && ref.Username != "" {
				oldNames = append(oldNames, ref.Username)
			}
		}
		nameHolders, err := r.hmget(ctx, tx, r.byUsername(), oldNames)
		if err != nil {
			return err
		}
		newIDs := make([]string, len(refs))
		for i, ref := range refs {
			newIDs[i] = ref.ProfileID
		}
		prevOwners, err := r.hmget(ctx, tx, r.byProfile(), newIDs)
		if err != nil {
			return err
		}
		// usernames held elsewhere by a profile this save takes over
		claimed := map[string]bool{}
		for _, ref := range refs {
			claimed[ref.Username] = true
		}
		stale := map[string]bool{}
		var prevNames []string
		for _, prev := range prevOwners {
			if prev != nil && prev.Key != key && prev.Username != "" && !claimed[prev.Username] {
				prevNames = append(prevNames, prev.Username)
			}
		}
		prevHolders, err := r.hmget(ctx, tx, r.byUsername(), prevNames)
		if err != nil {
			return err
		}
		for i, holder := range prevHolders {
			if holder != nil && slices.Contains(newIDs, holder.ProfileID) {
				stale[prevNames[i]] = true
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, r.snapshotKey(key), data, 0)
			if len(oldIDs) > 0 {
				pipe.HDel(ctx, r.byProfile(), oldIDs...)
			}
			for i, holder := range nameHolders {
				if holder != nil && holder.Key == key {
					pipe.HDel(ctx, r.byUsername(), oldNames[i])
				}
			}
			pipe.Del(ctx, owned)
			for i, ref := range refs {
				if prev := prevOwners[i]; prev != nil && prev.Key != key {
					pipe.SRem(ctx, r.ownedKey(prev.Key), ref.ProfileID)
					if stale[prev.Username] {
						pipe.HDel(ctx, r.byUsername(), prev.Username)
					}
				}
				b, err := json.Marshal(ref)
				if err != nil {
					return err
				}
				pipe.HSet(ctx, r.byProfile(), ref.ProfileID, b)
				if ref.Username != "" {
					pipe.HSet(ctx, r.byUsername(), ref.Username, b)
				}
				pipe.SAdd(ctx, owned, ref.ProfileID)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = r.client.Watch(ctx, txf, owned, r.byUsername(), r.byProfile())
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("save snapshot %q: %w", key, err)
}

func (r *Repository) findRef(ctx context.Context, hash, field string) (*ports.ProfileRef, error) {
	if field == "" {
		return nil, ports.ErrNotFound
	}
	raw, err := r.client.HGet(ctx, hash, field).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var ref ports.ProfileRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("decode profile ref: %w", err)
	}
	return &ref, nil
}

func (r *Repository) FindProfileRef(ctx context.Context, username string) (*ports.ProfileRef, error) {
	return r.findRef(ctx, r.byUsername(), username)
}

func (r *Repository) FindProfileRefByID(ctx context.Context, profileID string) (*ports.ProfileRef, error) {
	return r.findRef(ctx, r.byProfile(), profileID)
}

func (r *Repository) Close() error {
	return r.client.Close()
}

var _ ports.SnapshotRepository = (*Repository)(nil)

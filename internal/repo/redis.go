package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/birthdays/internal/domain"
)

// Key layout:
//
//	birthday:{id}          hash   userId, data (JSON BirthdayRecord)
//	birthdays:user:{owner} set    ids owned by the user
const (
	birthdayKeyPrefix = "birthday:"
	ownerKeyPrefix    = "birthdays:user:"
)

// Each write runs as a Lua script so the existence check and the mutation
// are atomic. The scripts return 1 on success and 0 when the guard fails.
var (
	saveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'userId', ARGV[2], 'data', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

	updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[1])
return 1
`)

	deleteScript = redis.NewScript(`
local owner = redis.call('HGET', KEYS[1], 'userId')
if not owner then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('SREM', ARGV[2] .. owner, ARGV[1])
return 1
`)
)

// redisBirthdayRepo is the Redis implementation of BirthdayRepo.
type redisBirthdayRepo struct {
	rdb redis.UniversalClient
}

// NewRedisRepo constructs a BirthdayRepo backed by rdb.
func NewRedisRepo(rdb redis.UniversalClient) BirthdayRepo {
	return &redisBirthdayRepo{rdb: rdb}
}

func birthdayKey(id string) string { return birthdayKeyPrefix + id }
func ownerKey(userID string) string { return ownerKeyPrefix + userID }

func (r *redisBirthdayRepo) Save(ctx context.Context, b *domain.Birthday) error {
	data, err := json.Marshal(b.Record())
	if err != nil {
		return fmt.Errorf("repo.BirthdayRepo.Save: marshaling birthday: %w", err)
	}

	id := b.ID().String()
	ok, err := saveScript.Run(ctx, r.rdb,
		[]string{birthdayKey(id), ownerKey(b.UserID())},
		id, b.UserID(), data,
	).Int()
	if err != nil {
		return fmt.Errorf("repo.BirthdayRepo.Save: %w", err)
	}
	if ok == 0 {
		return fmt.Errorf("repo.BirthdayRepo.Save: birthday already exists: %w", domain.ErrConflict)
	}
	return nil
}

func (r *redisBirthdayRepo) FindByID(ctx context.Context, id domain.BirthdayID) (*domain.Birthday, error) {
	data, err := r.rdb.HGet(ctx, birthdayKey(id.String()), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByID: %w", err)
	}

	b, err := decodeBirthday(data)
	if err != nil {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByID: %w", err)
	}
	return b, nil
}

// FindByOwner reads the owner's id set and fetches every record in a single
// pipeline. Ids whose hash disappeared between the two round trips are skipped.
func (r *redisBirthdayRepo) FindByOwner(ctx context.Context, userID string) ([]*domain.Birthday, error) {
	ids, err := r.rdb.SMembers(ctx, ownerKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Birthday{}, nil
	}
	sort.Strings(ids)

	cmds := make([]*redis.StringCmd, len(ids))
	_, err = r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGet(ctx, birthdayKey(id), "data")
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: %w", err)
	}

	out := make([]*domain.Birthday, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: %w", err)
		}
		b, err := decodeBirthday(data)
		if err != nil {
			return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *redisBirthdayRepo) Update(ctx context.Context, b *domain.Birthday) error {
	data, err := json.Marshal(b.Record())
	if err != nil {
		return fmt.Errorf("repo.BirthdayRepo.Update: marshaling birthday: %w", err)
	}

	ok, err := updateScript.Run(ctx, r.rdb, []string{birthdayKey(b.ID().String())}, data).Int()
	if err != nil {
		return fmt.Errorf("repo.BirthdayRepo.Update: %w", err)
	}
	if ok == 0 {
		return fmt.Errorf("repo.BirthdayRepo.Update: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *redisBirthdayRepo) Delete(ctx context.Context, id domain.BirthdayID) error {
	ok, err := deleteScript.Run(ctx, r.rdb,
		[]string{birthdayKey(id.String())},
		id.String(), ownerKeyPrefix,
	).Int()
	if err != nil {
		return fmt.Errorf("repo.BirthdayRepo.Delete: %w", err)
	}
	if ok == 0 {
		return fmt.Errorf("repo.BirthdayRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func decodeBirthday(data []byte) (*domain.Birthday, error) {
	var rec domain.BirthdayRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding birthday: %w", err)
	}
	return domain.FromRecord(rec)
}

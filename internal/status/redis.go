package status

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharsanguruparan/doctranslate/internal/model"
)

// setScript applies the transition check and the write atomically on the
// server. It mirrors model.CanTransition.
var setScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then cur = '' end
local to = ARGV[1]
local ok = (cur == '' and to == 'processing') or (cur == 'processing' and (to == 'completed' or to == 'failed'))
if not ok then return 0 end
redis.call('HSET', KEYS[1], 'status', to, 'output', ARGV[2], 'error', ARGV[3], 'updated_at', ARGV[4])
if tonumber(ARGV[5]) > 0 then redis.call('EXPIRE', KEYS[1], ARGV[5]) end
return 1
`)

// RedisStore keeps one hash per job so API and worker processes share state.
// Entries expire after ttl; zero keeps them until Redis evicts them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func jobKey(id string) string {
	return fmt.Sprintf("doctranslate:job:%s", id)
}

// Set records st for id if the transition is allowed.
func (r *RedisStore) Set(ctx context.Context, id string, st model.Status) error {
	applied, err := setScript.Run(ctx, r.client, []string{jobKey(id)},
		string(st.State),
		st.OutputPath,
		st.Error,
		time.Now().UTC().Format(time.RFC3339Nano),
		int64(r.ttl.Seconds()),
	).Int()
	if err != nil {
		return fmt.Errorf("set status %s: %w", id, err)
	}
	if applied == 0 {
		return fmt.Errorf("job %s -> %q: %w", id, st.State, ErrInvalidTransition)
	}
	return nil
}

// Get returns the status for id.
func (r *RedisStore) Get(ctx context.Context, id string) (model.Status, error) {
	fields, err := r.client.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return model.Status{}, fmt.Errorf("get status %s: %w", id, err)
	}
	if len(fields) == 0 || fields["status"] == "" {
		return model.Status{}, ErrNotFound
	}
	return model.Status{
		State:      model.State(fields["status"]),
		OutputPath: fields["output"],
		Error:      fields["error"],
	}, nil
}

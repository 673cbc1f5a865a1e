package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/w-h-a/doclens/usage"
)

const (
	keyPrefix = "doclens:usage"
	retention = time.Hour
)

// admitScript appends the record only while the window list is under quota.
// KEYS[1] window list, ARGV[1] quota, ARGV[2] record, ARGV[3] ttl seconds.
var admitScript = redis.NewScript(`
local n = redis.call('LLEN', KEYS[1])
if n >= tonumber(ARGV[1]) then
	return {0, n}
end
redis.call('RPUSH', KEYS[1], ARGV[2])
redis.call('EXPIRE', KEYS[1], ARGV[3])
return {1, n + 1}
`)

type redisLedger struct {
	options usage.Options
	client  *redis.Client
}

func (l *redisLedger) Admit(ctx context.Context, req usage.AdmitRequest) (usage.Decision, error) {
	if err := req.Validate(); err != nil {
		return usage.Decision{}, err
	}

	rec := req.NewRecord()

	payload, err := json.Marshal(rec)
	if err != nil {
		return usage.Decision{}, fmt.Errorf("marshal usage record: %w", err)
	}

	res, err := admitScript.Run(
		ctx,
		l.client,
		[]string{windowKey(req.Source, req.WindowStart)},
		req.Quota,
		string(payload),
		ttlSeconds(req),
	).Int64Slice()
	if err != nil {
		return usage.Decision{}, fmt.Errorf("admit usage: %w", err)
	}

	if len(res) != 2 {
		return usage.Decision{}, fmt.Errorf("admit usage: unexpected reply %v", res)
	}

	used := int(res[1])

	if res[0] == 0 {
		return usage.Decision{Used: used}, nil
	}

	return usage.Decision{
		Admitted:  true,
		Used:      used,
		Remaining: req.Quota - used,
		Record:    &rec,
	}, nil
}

// Count reads the window list keyed by from, so from should be a window
// start.
func (l *redisLedger) Count(ctx context.Context, source string, from time.Time, to time.Time) (int, error) {
	items, err := l.client.LRange(ctx, windowKey(source, from), 0, -1).Result()
	if err != nil {
		return 0, err
	}

	n := 0
	for _, item := range items {
		var rec usage.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			l.options.Logger.WarnContext(ctx, "skipping malformed usage record", "source", source, "error", err)
			continue
		}
		if !rec.AdmittedAt.Before(from) && rec.AdmittedAt.Before(to) {
			n++
		}
	}

	return n, nil
}

func (l *redisLedger) Close() error {
	return l.client.Close()
}

// ttlSeconds keeps a window list until its window closes, plus retention.
func ttlSeconds(req usage.AdmitRequest) int64 {
	remaining := req.WindowEnd.Sub(req.Now)
	if remaining < 0 {
		remaining = 0
	}
	return int64((remaining + retention).Seconds())
}

func windowKey(source string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, source, start.UTC().Unix())
}

func NewLedger(opts ...usage.Option) usage.Ledger {
	options := usage.NewOptions(opts...)

	redisOpts, err := redis.ParseURL(options.Location)
	if err != nil {
		redisOpts = &redis.Options{Addr: options.Location}
	}

	client := redis.NewClient(redisOpts)

	if err := client.Ping(options.Context).Err(); err != nil {
		detail := "failed to ping redis usage ledger"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return &redisLedger{
		options: options,
		client:  client,
	}
}

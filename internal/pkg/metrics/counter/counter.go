package counter

import (
	"context"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

const webhookOutcomesKey = "webhook:counters:outcomes"

// Webhook outcomes tracked per delivery.
const (
	OutcomeProcessed = "processed"
	OutcomeEnrolled  = "enrolled"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Counter keeps webhook outcome totals in a Redis hash so every instance
// behind the load balancer adds to the same numbers.
type Counter struct {
	client *goredis.Client
	key    string
}

func New(client *goredis.Client) *Counter {
	return &Counter{client: client, key: webhookOutcomesKey}
}

// Add increments the total for outcome. A nil Counter does nothing.
func (c *Counter) Add(ctx context.Context, outcome string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.HIncrBy(ctx, c.key, outcome, 1).Err()
}

// Snapshot returns the current totals. Fields that are not integers are skipped.
func (c *Counter) Snapshot(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	if c == nil || c.client == nil {
		return out, nil
	}

	data, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	for field, raw := range data {
		n, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}

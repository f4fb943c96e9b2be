package status

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "meshgate:"

// RedisSink mirrors the snapshot into Redis: the full document under
// <prefix>status and one hash per node under <prefix>node:<id>.
type RedisSink struct {
	client redis.Cmdable
	prefix string
}

// RedisSinkOption configures a RedisSink.
type RedisSinkOption func(*RedisSink)

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) RedisSinkOption {
	return func(s *RedisSink) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisSink constructs a sink on an existing client; the caller owns the
// client lifecycle.
func NewRedisSink(client redis.Cmdable, opts ...RedisSinkOption) *RedisSink {
	s := &RedisSink{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisSink) Name() string {
	return "redis"
}

// StatusKey is the key holding the full JSON snapshot.
func (s *RedisSink) StatusKey() string {
	return s.prefix + "status"
}

// NodeKey is the hash key for one node.
func (s *RedisSink) NodeKey(nodeID string) string {
	return s.prefix + "node:" + nodeID
}

// Write sends every command in one pipeline.
func (s *RedisSink) Write(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.StatusKey(), payload, 0)
	for nodeID, node := range snap.Nodes {
		fields := map[string]any{
			"epoch_id":   strconv.FormatUint(snap.Epoch.ID, 10),
			"membership": string(node.Membership),
			"reason":     string(node.Reason),
			"detail":     node.Detail,
		}
		if node.LastBenchmark != nil {
			fields["overall"] = strconv.FormatFloat(node.LastBenchmark.Overall, 'f', -1, 64)
			fields["observed_at"] = node.LastBenchmark.ObservedAt
			fields["suite_version"] = node.LastBenchmark.SuiteVersion
		}
		pipe.HSet(ctx, s.NodeKey(nodeID), fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis status pipeline: %w", err)
	}
	return nil
}

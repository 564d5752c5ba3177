package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stratum-ops/opsdeck/src/console/types"
)

const (
	noncePrefix     = "nonce:"
	streamSnapshots = "opsdeck.snapshots"

	nonceTTL       = 5 * time.Minute
	publishTimeout = 5 * time.Second
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("data: redis: %v", err)
	}
	return redis.NewClient(opt)
}

// SetNonce stores a login challenge for an operator. It expires on its
// own if never answered.
func SetNonce(ctx context.Context, rdb *redis.Client, operator, nonce string) error {
	return rdb.Set(ctx, noncePrefix+operator, nonce, nonceTTL).Err()
}

// GetAndDelNonce consumes the operator's challenge; a nonce verifies at
// most once.
func GetAndDelNonce(ctx context.Context, rdb *redis.Client, operator string) (string, error) {
	return rdb.GetDel(ctx, noncePrefix+operator).Result()
}

// PublishSnapshot appends one snapshot frame to the console stream.
func PublishSnapshot(ctx context.Context, rdb *redis.Client, snap types.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamSnapshots,
		Values: map[string]interface{}{
			"tick":   snap.Tick,
			"digest": snap.Digest,
			"body":   body,
		},
	}).Result()
	return err
}

// SnapshotPublisher is a session sink that forwards snapshots to the
// Redis stream, suppressing frames whose content digest matches the last
// published one. Publish runs on the session's single pump goroutine.
type SnapshotPublisher struct {
	rdb  *redis.Client
	last string
}

func NewSnapshotPublisher(rdb *redis.Client) *SnapshotPublisher {
	return &SnapshotPublisher{rdb: rdb}
}

func (p *SnapshotPublisher) Publish(snap types.Snapshot) {
	if snap.Digest == p.last {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := PublishSnapshot(ctx, p.rdb, snap); err != nil {
		log.Printf("data: snapshot stream: %v", err)
		return
	}
	p.last = snap.Digest
}

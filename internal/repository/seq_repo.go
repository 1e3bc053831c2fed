package repository

import (
	"context"
	"fmt"

	"github.com/mbeoliero/buildingchat/pkg/constant"
	"github.com/redis/go-redis/v9"
)

// SeqRepo allocates per-parent message ids from a Redis counter
type SeqRepo struct {
	rdb      *redis.Client
	messages MessageStore
}

// NewSeqRepo creates a new SeqRepo
func NewSeqRepo(rdb *redis.Client, messages MessageStore) *SeqRepo {
	return &SeqRepo{rdb: rdb, messages: messages}
}

// AllocSeq allocates the next id for a parent using Redis INCR.
// A missing counter is seeded from the stored max id so ids never repeat after a Redis flush.
func (r *SeqRepo) AllocSeq(ctx context.Context, parentId string) (int64, error) {
	key := fmt.Sprintf(constant.RedisKeySeqParent(), parentId)

	exists, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		maxId, err := r.messages.MaxId(ctx, parentId)
		if err != nil {
			return 0, err
		}
		if err := r.rdb.SetNX(ctx, key, maxId, 0).Err(); err != nil {
			return 0, err
		}
	}

	return r.rdb.Incr(ctx, key).Result()
}

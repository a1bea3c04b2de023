package indexer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	productKeyPrefix = "listing:product:"
	liveSetKey       = "listing:products"
)

// ProductKey is the redis hash holding one product view
func ProductKey(index uint64) string {
	return productKeyPrefix + strconv.FormatUint(index, 10)
}

// RedisStore keeps one hash per product and a set of live indices
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, view ProductView) error {
	key := ProductKey(view.Index)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encodeView(view))
		pipe.SAdd(ctx, liveSetKey, view.Index)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store product %d: %w", view.Index, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, index uint64) (*ProductView, error) {
	fields, err := s.client.HGetAll(ctx, ProductKey(index)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", index, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: index %d", ErrNotIndexed, index)
	}
	return decodeView(index, fields)
}

func (s *RedisStore) SetSoldCount(ctx context.Context, index uint64, soldCount uint64) error {
	key := ProductKey(index)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check product %d: %w", index, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: index %d", ErrNotIndexed, index)
	}
	if err := s.client.HSet(ctx, key, "sold_count", soldCount).Err(); err != nil {
		return fmt.Errorf("failed to record sale of product %d: %w", index, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, index uint64) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, ProductKey(index))
		pipe.SRem(ctx, liveSetKey, index)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", index, err)
	}
	return nil
}

// Live returns the indexed live product indices
func (s *RedisStore) Live(ctx context.Context) ([]uint64, error) {
	members, err := s.client.SMembers(ctx, liveSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	out := make([]uint64, 0, len(members))
	for _, m := range members {
		index, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt live set member %q: %w", m, err)
		}
		out = append(out, index)
	}
	return out, nil
}

func encodeView(view ProductView) map[string]interface{} {
	return map[string]interface{}{
		"owner":       view.Owner,
		"name":        view.Name,
		"image_ref":   view.ImageRef,
		"description": view.Description,
		"location":    view.Location,
		"price":       strconv.FormatInt(view.Price, 10),
		"sold_count":  strconv.FormatUint(view.SoldCount, 10),
	}
}

func decodeView(index uint64, fields map[string]string) (*ProductView, error) {
	view := &ProductView{
		Index: index,
		Owner: fields["owner"],
	}
	view.Name = fields["name"]
	view.ImageRef = fields["image_ref"]
	view.Description = fields["description"]
	view.Location = fields["location"]

	var err error
	if raw := fields["price"]; raw != "" {
		if view.Price, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("corrupt price for product %d: %w", index, err)
		}
	}
	if raw := fields["sold_count"]; raw != "" {
		if view.SoldCount, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("corrupt sold_count for product %d: %w", index, err)
		}
	}
	return view, nil
}

package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/trezcool/paes/core"
)

// publisher is the part of the redis client we use.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// RedisPublisher broadcasts trust events as JSON on a redis pub/sub channel.
type RedisPublisher struct {
	rdb     publisher
	close   func() error
	channel string
}

var _ core.EventPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher connects to conf.Redis.Addr and checks the connection.
func NewRedisPublisher(ctx context.Context, conf *core.Config) (*RedisPublisher, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        conf.Redis.Addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &RedisPublisher{rdb: rdb, close: rdb.Close, channel: conf.Redis.Channel}, nil
}

func (pub *RedisPublisher) Publish(ctx context.Context, evt core.Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}
	if err = pub.rdb.Publish(ctx, pub.channel, raw).Err(); err != nil {
		return errors.Wrapf(err, "publishing to %s", pub.channel)
	}
	return nil
}

func (pub *RedisPublisher) Close() error {
	if pub.close == nil {
		return nil
	}
	return pub.close()
}

package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"vaultbooks/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

// Generator hands out short human readable codes. Codes restart every UTC day.
type Generator interface {
	NextRewardCode(ctx context.Context) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
	now func() time.Time
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
		now: time.Now,
	}
}

// NextRewardCode returns codes like RWD-261015-00AK7.
func (g *RedisGenerator) NextRewardCode(ctx context.Context) (string, error) {
	return g.nextDailyCode(ctx, "RWD")
}

func (g *RedisGenerator) nextDailyCode(ctx context.Context, prefix string) (string, error) {
	now := g.now().UTC()
	today := now.Format("060102")
	key := rediskey.BuildSequenceKey(prefix, today)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	if seq == 1 {
		endOfDay := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
		_ = g.rdb.ExpireAt(ctx, key, endOfDay).Err()
	}

	encodedSeq := FormatSequence(seq)
	randSuffix, err := randomAlphaNumeric(2)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%s%s", prefix, today, encodedSeq, randSuffix), nil
}

// FormatSequence renders seq in upper-case base36, zero padded to three characters.
func FormatSequence(seq int64) string {
	s := strings.ToUpper(strconv.FormatInt(seq, 36))
	if len(s) < 3 {
		s = strings.Repeat("0", 3-len(s)) + s
	}
	return s
}

func randomAlphaNumeric(n int) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		b[i] = chars[num.Int64()]
	}
	return string(b), nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/manufacturer-api/internal/logger"
)

// Cache markers for users without a role and for unknown users.
const (
	noRole      = "~none"
	missingUser = "~missing"
)

// genTTL keeps a user's generation counter around long enough to outlive any
// in-flight lookup.
const genTTL = time.Hour

// setIfCurrent writes the role only when the generation read before the store
// lookup is still current. Invalidate bumps the generation, so a lookup that
// raced with a role change cannot put the old role back.
var setIfCurrent = redis.NewScript(`
	local gen = redis.call('GET', KEYS[2]) or '0'
	if gen ~= ARGV[1] then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// RoleResolver answers "what is this user's role" for the admin gate. With a
// Redis client and a positive TTL, answers are cached for at most TTL and
// dropped explicitly whenever a role-changing write goes through Invalidate.
// Without Redis every call reads the user store.
//
// Each email has a generation counter next to its cached role. A lookup
// records the generation before reading the store and only caches its answer
// if no Invalidate happened in between.
type RoleResolver struct {
	users  *UserRepo
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRoleResolver(users *UserRepo, rdb *redis.Client, ttl time.Duration) *RoleResolver {
	return &RoleResolver{users: users, rdb: rdb, ttl: ttl, prefix: "role:"}
}

func (r *RoleResolver) cached() bool { return r.rdb != nil && r.ttl > 0 }

func (r *RoleResolver) key(email string) string { return r.prefix + NormalizeEmail(email) }

func (r *RoleResolver) genKey(email string) string { return r.prefix + "gen:" + NormalizeEmail(email) }

// Role returns the stored role for email. A missing user yields ErrNotFound.
func (r *RoleResolver) Role(ctx context.Context, email string) (string, error) {
	gen, cacheOK := "0", false
	if r.cached() {
		// Role and generation in one round trip.
		vals, err := r.rdb.MGet(ctx, r.key(email), r.genKey(email)).Result()
		if err != nil {
			logger.FromCtx(ctx).Warn("role cache read failed", zap.Error(err))
		} else {
			cacheOK = true
			if g, ok := vals[1].(string); ok {
				gen = g
			}
			if v, ok := vals[0].(string); ok {
				switch v {
				case missingUser:
					return "", ErrNotFound
				case noRole:
					return "", nil
				default:
					return v, nil
				}
			}
		}
	}

	u, err := r.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if cacheOK {
		v := u.Role
		switch {
		case err != nil:
			v = missingUser
		case v == "":
			v = noRole
		}
		serr := setIfCurrent.Run(ctx, r.rdb, []string{r.key(email), r.genKey(email)},
			gen, v, r.ttl.Milliseconds()).Err()
		if serr != nil {
			logger.FromCtx(ctx).Warn("role cache write failed", zap.Error(serr))
		}
	}
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// Invalidate drops the cached role for email and bumps its generation so
// lookups already in flight do not re-cache the old value. It is a no-op
// without Redis.
func (r *RoleResolver) Invalidate(ctx context.Context, email string) error {
	if r.rdb == nil {
		return nil
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, r.genKey(email))
		p.Expire(ctx, r.genKey(email), genTTL)
		p.Del(ctx, r.key(email))
		return nil
	})
	return err
}

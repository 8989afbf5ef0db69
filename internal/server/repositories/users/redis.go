package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/coursesms/courses/internal/common"
	"github.com/coursesms/courses/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// Key layout under the repository prefix:
//
//	<p>user:<id>     hash with the user record
//	<p>users:email   hash email -> id
//	<p>users:ids     sorted set of ids, scored by id
//	<p>users:seq     id sequence
const (
	keyUser    = "user:"
	keyByEmail = "users:email"
	keyIDs     = "users:ids"
	keySeq     = "users:seq"
)

const createUserScript = `
local function create(prefix, first, last, email, password, role)
  if redis.call("HEXISTS", KEYS[1], email) == 1 then
    return 0
  end
  local id = redis.call("INCR", KEYS[3])
  redis.call("HSET", prefix .. id,
    "id", id, "first_name", first, "last_name", last,
    "email", email, "password", password, "role", role)
  redis.call("HSET", KEYS[1], email, id)
  redis.call("ZADD", KEYS[2], id, id)
  return id
end
`

// KEYS: email index, id set, sequence. ARGV: user key prefix, then one
// record of five fields.
var createUserLua = redis.NewScript(createUserScript + `
return create(ARGV[1], ARGV[2], ARGV[3], ARGV[4], ARGV[5], ARGV[6])
`)

// Same keys; ARGV carries any number of five-field records. Nothing is
// written unless the id set is empty, and a duplicate email inside the
// batch aborts before the first write.
var createIfEmptyLua = redis.NewScript(createUserScript + `
if redis.call("ZCARD", KEYS[2]) > 0 then
  return 0
end
local seen = {}
for i = 2, #ARGV, 5 do
  local email = ARGV[i + 2]
  if seen[email] then
    return -1
  end
  seen[email] = true
end
local n = 0
for i = 2, #ARGV, 5 do
  create(ARGV[1], ARGV[i], ARGV[i + 1], ARGV[i + 2], ARGV[i + 3], ARGV[i + 4])
  n = n + 1
end
return n
`)

// KEYS: user key. ARGV: token.
var setTokenLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_token", ARGV[1])
return 1
`)

// KEYS: user key. ARGV: expected, next. A missing field never matches.
var swapTokenLua = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], "refresh_token")
if not current or current ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_token", ARGV[2])
return 1
`)

// RedisRepository keeps users in Redis hashes. Every mutation is a Lua
// script, so each one is atomic with respect to concurrent callers.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisRepository(rdb redis.UniversalClient, prefix string) *RedisRepository {
	return &RedisRepository{rdb: rdb, prefix: prefix}
}

func (r *RedisRepository) key(parts ...string) string {
	k := r.prefix
	for _, p := range parts {
		k += p
	}
	return k
}

func (r *RedisRepository) userKey(id int64) string {
	return r.key(keyUser, strconv.FormatInt(id, 10))
}

func (r *RedisRepository) indexKeys() []string {
	return []string{r.key(keyByEmail), r.key(keyIDs), r.key(keySeq)}
}

func (r *RedisRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	fields, err := r.rdb.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}
	return userFromHash(fields)
}

func (r *RedisRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := r.rdb.HGet(ctx, r.key(keyByEmail), email).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *RedisRepository) Create(ctx context.Context, u *models.User) (int64, error) {
	id, err := createUserLua.Run(ctx, r.rdb, r.indexKeys(),
		r.key(keyUser), u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role)).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	if id == 0 {
		return 0, common.ErrorAlreadyExists
	}
	return 1, nil
}

func (r *RedisRepository) CreateIfEmpty(ctx context.Context, us []*models.User) (int64, error) {
	if len(us) == 0 {
		return 0, nil
	}

	args := make([]any, 0, 1+len(us)*5)
	args = append(args, r.key(keyUser))
	for _, u := range us {
		args = append(args, u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role))
	}

	n, err := createIfEmptyLua.Run(ctx, r.rdb, r.indexKeys(), args...).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	if n < 0 {
		return 0, common.ErrorAlreadyExists
	}
	return n, nil
}

func (r *RedisRepository) SetRefreshToken(ctx context.Context, id int64, token string) (int64, error) {
	n, err := setTokenLua.Run(ctx, r.rdb, []string{r.userKey(id)}, token).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return n, nil
}

func (r *RedisRepository) SwapRefreshToken(ctx context.Context, id int64, expected, next string) (int64, error) {
	n, err := swapTokenLua.Run(ctx, r.rdb, []string{r.userKey(id)}, expected, next).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return n, nil
}

func (r *RedisRepository) List(ctx context.Context) ([]models.User, error) {
	ids, err := r.rdb.ZRange(ctx, r.key(keyIDs), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.key(keyUser, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	result := make([]models.User, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		u, err := userFromHash(fields)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	return result, nil
}

func userFromHash(fields map[string]string) (*models.User, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt user record: %w", err)
	}
	u := &models.User{
		ID:           id,
		FirstName:    fields["first_name"],
		LastName:     fields["last_name"],
		Email:        fields["email"],
		PasswordHash: fields["password"],
		Role:         models.Role(fields["role"]),
	}
	if tok, ok := fields["refresh_token"]; ok {
		u.RefreshToken = &tok
	}
	return u, nil
}

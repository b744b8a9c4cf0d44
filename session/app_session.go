package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("session not found")

// AppSessionStore: passkey 登录后的 cookie 会话，每个会话一个 hash，
// 另有一个 set 记录用户名下的全部会话 id
type AppSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAppSessionStore(rdb *redis.Client, ttl time.Duration) *AppSessionStore {
	return &AppSessionStore{rdb: rdb, ttl: ttl}
}

type AppSession struct {
	ID        string
	UserID    string
	IP        string
	UserAgent string
	IssuedAt  time.Time
}

func (s *AppSessionStore) TTL() time.Duration { return s.ttl }

func sessKey(id string) string     { return "lend:sess:" + id }
func userSetKey(uid string) string  { return "lend:user_sessions:" + uid }

func (s *AppSessionStore) Create(ctx context.Context, id, userID, ip, ua string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, sessKey(id),
			"uid", userID,
			"ip", ip,
			"ua", ua,
			"iat", strconv.FormatInt(time.Now().Unix(), 10),
		)
		p.Expire(ctx, sessKey(id), s.ttl)
		p.SAdd(ctx, userSetKey(userID), id)
		p.Expire(ctx, userSetKey(userID), s.ttl)
		return nil
	})
	return err
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	m, err := s.rdb.HGetAll(ctx, sessKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if m["uid"] == "" {
		return nil, ErrNoSession
	}
	iat, _ := strconv.ParseInt(m["iat"], 10, 64)
	return &AppSession{
		ID:        id,
		UserID:    m["uid"],
		IP:        m["ip"],
		UserAgent: m["ua"],
		IssuedAt:  time.Unix(iat, 0).UTC(),
	}, nil
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	uid, err := s.rdb.HGet(ctx, sessKey(id), "uid").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessKey(id))
		if uid != "" {
			p.SRem(ctx, userSetKey(uid), id)
		}
		return nil
	})
	return err
}

// RevokeAllForUser 停用账号时调用，清掉该用户所有 cookie 会话
func (s *AppSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	ids, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, sid := range ids {
		keys = append(keys, sessKey(sid))
	}
	keys = append(keys, userSetKey(userID))
	return s.rdb.Del(ctx, keys...).Err()
}

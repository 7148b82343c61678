// README: Session lookup against the external auth collaborator (redis-backed).
package infra

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"convoy/internal/types"
)

// Session holds the resolved identity used by downstream middleware. The
// service never authenticates users itself; it only consumes (id, role)
// pairs resolved here.
type Session struct {
	UserID types.ID
	Role   types.Role
}

// SessionVerifier resolves a raw bearer token into a session.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*Session, error)
}

var ErrSessionNotFound = errors.New("session not found")

// redisSessionStore is the production implementation. The auth service
// writes sessions as hashes under session:<token> with user_id and role
// fields; this side only reads them.
type redisSessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) SessionVerifier {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Verify(ctx context.Context, token string) (*Session, error) {
	fields, err := s.client.HGetAll(ctx, "session:"+token).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrSessionNotFound
	}
	uid, err := strconv.ParseInt(fields["user_id"], 10, 64)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	role := types.Role(fields["role"])
	switch role {
	case types.RoleAdmin, types.RoleSupervisor, types.RoleTransportista:
	default:
		return nil, ErrSessionNotFound
	}
	return &Session{UserID: types.ID(uid), Role: role}, nil
}

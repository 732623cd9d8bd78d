package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrInvalidSession covers malformed, expired and revoked tokens alike so the
// auth middleware can map every failure to a single 401.
var ErrInvalidSession = errors.New("invalid or expired session")

// Store is the explicit session abstraction: cookie transport stays in the
// middleware, persistence lives behind this interface. Folder unlocks are
// session-scoped, which is what lets the server enforce verify-access before
// listing a protected folder.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Validate(ctx context.Context, token string) (uuid.UUID, error)
	Destroy(ctx context.Context, token string) error
	UnlockFolder(ctx context.Context, token string, folderID uuid.UUID) error
	FolderUnlocked(ctx context.Context, token string, folderID uuid.UUID) (bool, error)
}

type sessionClaims struct {
	UserID uuid.UUID `json:"userID"`
	jwt.RegisteredClaims
}

// RedisStore issues HS256 tokens whose jti names a Redis key; Destroy deletes
// the key, so revocation is real rather than wait-for-expiry.
type RedisStore struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, secret string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, secret: []byte(secret), ttl: ttl}
}

func sessionKey(jti string) string {
	return "session:" + jti
}

func folderSetKey(jti string) string {
	return "session:" + jti + ":folders"
}

func (s *RedisStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	jti := uuid.NewString()
	now := time.Now()

	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, sessionKey(jti), userID.String(), s.ttl).Err(); err != nil {
		return "", err
	}

	return token, nil
}

func (s *RedisStore) parse(token string) (*sessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidSession
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func (s *RedisStore) Validate(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := s.parse(token)
	if err != nil {
		return uuid.Nil, err
	}

	stored, err := s.client.Get(ctx, sessionKey(claims.ID)).Result()
	if err == redis.Nil {
		return uuid.Nil, ErrInvalidSession
	}
	if err != nil {
		return uuid.Nil, err
	}
	if stored != claims.UserID.String() {
		return uuid.Nil, ErrInvalidSession
	}

	return claims.UserID, nil
}

func (s *RedisStore) Destroy(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, sessionKey(claims.ID), folderSetKey(claims.ID)).Err()
}

func (s *RedisStore) UnlockFolder(ctx context.Context, token string, folderID uuid.UUID) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	key := folderSetKey(claims.ID)
	if err := s.client.SAdd(ctx, key, folderID.String()).Err(); err != nil {
		return err
	}
	// The unlock set lives no longer than the session itself.
	return s.client.Expire(ctx, key, s.ttl).Err()
}

func (s *RedisStore) FolderUnlocked(ctx context.Context, token string, folderID uuid.UUID) (bool, error) {
	claims, err := s.parse(token)
	if err != nil {
		return false, err
	}
	return s.client.SIsMember(ctx, folderSetKey(claims.ID), folderID.String()).Result()
}

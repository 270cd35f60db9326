// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package keys

import (
	"context"
	"encoding/json"
	"os"
	"sort"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrSourceAbsent reports that a source has nothing to offer, as opposed to
// failing while reading. Load moves on to the next source.
var ErrSourceAbsent = errors.New("key source absent")

// Source yields the identity records of an external key store.
type Source interface {
	Load(ctx context.Context) ([]Identity, error)
	Name() string
}

// FileSource reads a JSON array of identity records from disk.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string {
	return "file:" + s.Path
}

// Load implements Source. A missing file is ErrSourceAbsent.
func (s FileSource) Load(_ context.Context) ([]Identity, error) {
	if s.Path == "" {
		return nil, ErrSourceAbsent
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSourceAbsent
		}
		return nil, errors.Wrapf(err, "read key file %s", s.Path)
	}

	var ids []Identity
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, errors.Wrapf(err, "decode key file %s", s.Path)
	}
	return ids, nil
}

// RedisSource reads identities from a Redis hash: one field per app id, each
// value a JSON identity record.
type RedisSource struct {
	Client *redis.Client
	Key    string
}

// NewRedisSource connects to the Redis instance at addr.
func NewRedisSource(addr, password string, db int, key string) *RedisSource {
	return &RedisSource{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		Key: key,
	}
}

// Name implements Source.
func (s *RedisSource) Name() string {
	return "redis:" + s.Key
}

// Load implements Source. A missing or empty hash is ErrSourceAbsent.
func (s *RedisSource) Load(ctx context.Context) ([]Identity, error) {
	fields, err := s.Client.HGetAll(ctx, s.Key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "read key hash %s", s.Key)
	}
	if len(fields) == 0 {
		return nil, ErrSourceAbsent
	}

	appIDs := make([]string, 0, len(fields))
	for appID := range fields {
		appIDs = append(appIDs, appID)
	}
	sort.Strings(appIDs)

	ids := make([]Identity, 0, len(fields))
	for _, appID := range appIDs {
		var id Identity
		if err := json.Unmarshal([]byte(fields[appID]), &id); err != nil {
			return nil, errors.Wrapf(err, "decode key record %s", appID)
		}
		if id.AppID == "" {
			id.AppID = appID
		}
		if id.AppID != appID {
			return nil, errors.Errorf("key record %s carries appid %q", appID, id.AppID)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close releases the Redis connection pool.
func (s *RedisSource) Close() error {
	return s.Client.Close()
}

// Load builds a directory from the first source that is present, falling
// back to Defaults when none is. Only app ids are logged.
func Load(ctx context.Context, sources ...Source) (*Directory, error) {
	logger := log.With().Str("component", "keys").Logger()

	ids := Defaults()
	from := "built-in"
	for _, src := range sources {
		loaded, err := src.Load(ctx)
		if errors.Is(err, ErrSourceAbsent) {
			logger.Debug().Str("source", src.Name()).Msg("key source absent")
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "load keys from %s", src.Name())
		}
		ids, from = loaded, src.Name()
		break
	}

	dir, err := NewDirectory(ids)
	if err != nil {
		return nil, errors.Wrapf(err, "keys from %s", from)
	}

	if from == "built-in" {
		logger.Info().Msg("falling back on built-in keys")
	} else {
		logger.Info().Str("source", from).Msg("loaded keys")
	}
	for _, appID := range dir.AppIDs() {
		logger.Info().Str("appid", appID).Msg("registered app")
	}
	return dir, nil
}

// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package keys

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keysJSON = `[
  {"customer_name": "Acme", "appid": "acme", "key": "acme-secret", "custid": "c_acme",
   "ocn": "B0001", "currency": "EUR", "pricing_tier": "gold", "region": "EU", "discount": 12.5}
]`

func writeKeysFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func setupTestRedis(t *testing.T) (*RedisSource, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	src := NewRedisSource(mr.Addr(), "", 0, "perfrec:appkeys")
	t.Cleanup(func() { _ = src.Close() })
	return src, mr
}

func TestFileSource(t *testing.T) {
	ids, err := FileSource{Path: writeKeysFile(t, keysJSON)}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)

	assert.Equal(t, Identity{
		CustomerName: "Acme",
		AppID:        "acme",
		Key:          "acme-secret",
		CustomerID:   "c_acme",
		OCN:          "B0001",
		Currency:     "EUR",
		PricingTier:  "gold",
		Region:       "EU",
		Discount:     12.5,
	}, ids[0])
}

func TestFileSourceAbsentAndMalformed(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Load(context.Background())
	assert.ErrorIs(t, err, ErrSourceAbsent)

	_, err = FileSource{}.Load(context.Background())
	assert.ErrorIs(t, err, ErrSourceAbsent)

	_, err = FileSource{Path: writeKeysFile(t, "{not json")}.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSourceAbsent)
}

func TestRedisSource(t *testing.T) {
	src, mr := setupTestRedis(t)

	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, ErrSourceAbsent)

	mr.HSet("perfrec:appkeys",
		"acme", `{"customer_name":"Acme","key":"acme-secret","custid":"c_acme"}`,
		"beta", `{"customer_name":"Beta","appid":"beta","key":"beta-secret","custid":"c_beta"}`,
	)

	ids, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "acme", ids[0].AppID)
	assert.Equal(t, "acme-secret", ids[0].Key)
	assert.Equal(t, "beta", ids[1].AppID)
}

func TestRedisSourceRejectsMismatchedRecord(t *testing.T) {
	src, mr := setupTestRedis(t)
	mr.HSet("perfrec:appkeys", "acme", `{"appid":"other","key":"k"}`)

	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carries appid")
}

func TestLoadPrefersFirstPresentSource(t *testing.T) {
	src, mr := setupTestRedis(t)
	file := FileSource{Path: writeKeysFile(t, keysJSON)}

	// Redis empty: falls through to the file.
	dir, err := Load(context.Background(), src, file)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, dir.AppIDs())

	// Redis populated: wins over the file.
	mr.HSet("perfrec:appkeys", "gamma", `{"key":"gamma-secret"}`)
	dir, err = Load(context.Background(), src, file)
	require.NoError(t, err)
	assert.Equal(t, []string{"gamma"}, dir.AppIDs())
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	dir, err := Load(context.Background(), FileSource{Path: filepath.Join(t.TempDir(), "absent.json")})
	require.NoError(t, err)
	assert.Equal(t, []string{"simon", "test"}, dir.AppIDs())

	dir, err = Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, dir.Len())
}

func TestLoadPropagatesSourceErrors(t *testing.T) {
	_, err := Load(context.Background(), FileSource{Path: writeKeysFile(t, "[")})
	require.Error(t, err)

	_, err = Load(context.Background(), FileSource{Path: writeKeysFile(t, `[{"appid":"a"}]`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key is required")
}

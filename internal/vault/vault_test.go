package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cyberitance/backend/internal/config"
)

var _ config.SecretResolver = (*Client)(nil)

func TestSplitMount(t *testing.T) {
	cases := map[string][2]string{
		"secret/cyberitance/db": {"secret", "cyberitance/db"},
		"/secret/app/":          {"secret", "app"},
		"secret":                {"secret", ""},
		"":                      {"", ""},
	}
	for in, want := range cases {
		m, r := splitMount(in)
		assert.Equal(t, want[0], m, in)
		assert.Equal(t, want[1], r, in)
	}
}

func TestParseRef(t *testing.T) {
	path, key, err := ParseRef("secret/cyberitance/db#uri")
	require.NoError(t, err)
	assert.Equal(t, "secret/cyberitance/db", path)
	assert.Equal(t, "uri", key)

	for _, bad := range []string{"", "secret/db", "secret/db#", "#uri", "secret#uri"} {
		_, _, err := ParseRef(bad)
		assert.ErrorIs(t, err, ErrBadRef, bad)
	}
}

func TestResolve_CachesValue(t *testing.T) {
	calls := 0
	c := newClient(func(_ context.Context, mount, rel string) (map[string]any, error) {
		calls++
		assert.Equal(t, "secret", mount)
		assert.Equal(t, "cyberitance/app", rel)
		return map[string]any{"secret_key": "s3cr3t", "port": 5432}, nil
	})

	for i := 0; i < 2; i++ {
		v, err := c.Resolve(context.Background(), "secret/cyberitance/app#secret_key")
		require.NoError(t, err)
		assert.Equal(t, "s3cr3t", v)
	}
	assert.Equal(t, 1, calls)

	_, err := c.GetKV(context.Background(), "secret/cyberitance/app", "missing", 0)
	assert.ErrorContains(t, err, "not found")
	_, err = c.GetKV(context.Background(), "secret/cyberitance/app", "port", time.Minute)
	assert.ErrorContains(t, err, "not a string")
}

func TestResolve_UpstreamError(t *testing.T) {
	c := newClient(func(context.Context, string, string) (map[string]any, error) {
		return nil, assert.AnError
	})
	_, err := c.Resolve(context.Background(), "secret/app#key")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLogger_FollowsLaterGlobal(t *testing.T) {
	c := newClient(func(context.Context, string, string) (map[string]any, error) { return nil, nil })

	core, logs := observer.New(zapcore.WarnLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	c.logger().Warnw("token renew self failed", "err", assert.AnError)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "vault", logs.All()[0].LoggerName)
}

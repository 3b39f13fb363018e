package config

import (
	"testing"
	"time"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, LockBackendRedis, cfg.Lock.Backend)
	assert.Equal(t, 600*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 2*time.Second, cfg.Lock.Wait)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "inventory.movements", cfg.Events.MovementsTopic)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOCK_BACKEND", "memory")
	t.Setenv("LOCK_WAIT", "150ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("STATUS_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, LockBackendMemory, cfg.Lock.Backend)
	assert.Equal(t, 150*time.Millisecond, cfg.Lock.Wait)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.Events.StatusWorkers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "LOCK_BACKEND", "etcd"},
		{"zero ttl", "LOCK_TTL", "0s"},
		{"zero workers", "STATUS_WORKERS", "0"},
		{"non numeric db", "REDIS_DB", "x"},
		{"bad duration", "LOCK_WAIT", "soon"},
		{"negative wait", "LOCK_WAIT", "-1s"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Setenv(c.key, c.val)
			_, err := Load()
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.ErrInvalidInput))
		})
	}
}

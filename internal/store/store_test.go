package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurePoolAppliesBounds(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configurePool(db, 25, 7, 30*time.Minute)
	assert.Equal(t, 25, db.Stats().MaxOpenConnections)
}

func TestConfigurePoolDefaults(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configurePool(db, 0, -1, 0)
	assert.Equal(t, 10, db.Stats().MaxOpenConnections)
}

func TestNewRedisTimeouts(t *testing.T) {
	r := NewRedis("localhost:6379", 5*time.Second, 3*time.Second)
	opts := r.Client.Options()
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)
	assert.Equal(t, 3*time.Second, opts.WriteTimeout)

	r = NewRedis("localhost:6379", 0, 0)
	opts = r.Client.Options()
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}

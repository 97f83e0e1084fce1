package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.App.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.Inventory.MovementTimeout)
	assert.Equal(t, 3, cfg.Inventory.ConflictRetries)
	assert.Equal(t, time.Hour, cfg.Worker.SweepInterval)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.True(t, cfg.DB.AutoMigrate)
}

func TestFromViper_Sobrescrituras(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "memory")
	v.Set("INVENTORY_MOVEMENT_TIMEOUT", "250ms")
	v.Set("INVENTORY_BATCH_TIMEOUT", "45")
	v.Set("DB_PORT", "6543")
	v.Set("WORKER_RECONCILE_RATE", 2.5)

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.App.StoreDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.Inventory.MovementTimeout)
	assert.Equal(t, 45*time.Second, cfg.Inventory.BatchTimeout)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.InDelta(t, 2.5, cfg.Worker.ReconcileRate, 0.0001)
}

func TestFromViper_Invalidos(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "sqlite")
	_, err := fromViper(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("INVENTORY_LINE_TIMEOUT", "0s")
	_, err = fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "inv", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/inv?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}

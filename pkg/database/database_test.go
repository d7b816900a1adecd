package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Alijeyrad/hairai_backend/config"
)

func TestNewDSN(t *testing.T) {
	dsn := NewDSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "hairai",
		Password: `p@ss w'rd`,
		DBName:   "hairai",
	})

	assert.Equal(t,
		`host='db.internal' port=5433 user='hairai' password='p@ss w\'rd' dbname='hairai' sslmode=disable`,
		dsn)
}

func TestConnMaxLifetime(t *testing.T) {
	assert.Equal(t, defaultConnMaxLifetime, connMaxLifetime(config.DatabasePoolConfig{}))
	assert.Equal(t, 30*time.Minute, connMaxLifetime(config.DatabasePoolConfig{ConnMaxLifetimeMin: 30}))
}

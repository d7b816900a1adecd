package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/Alijeyrad/hairai_backend/config"
)

const defaultConnMaxLifetime = 5 * time.Minute

// quote wraps a libpq keyword value so spaces and quotes survive.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// NewDSN renders a lib/pq key/value connection string for one database section.
func NewDSN(c config.DatabaseConfig) string {
	return dsnFor(c, c.DBName)
}

func dsnFor(c config.DatabaseConfig, dbname string) string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quote(c.Host), c.Port, quote(c.User), quote(c.Password), quote(dbname), sslmode,
	)
}

func connMaxLifetime(p config.DatabasePoolConfig) time.Duration {
	if p.ConnMaxLifetimeMin <= 0 {
		return defaultConnMaxLifetime
	}
	return time.Duration(p.ConnMaxLifetimeMin) * time.Minute
}

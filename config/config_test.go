package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rental-backend/models"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "JWT_EXPIRE_MIN", "DB_DRIVER", "PAYMENT_GATEWAY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, "mysql", s.DBDriver)
	assert.Equal(t, "simulated", s.PaymentGateway)
	assert.Equal(t, time.Hour, s.JWTTTL())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, s.CORSOrigins)
}

func TestMySQLDSNFromURL(t *testing.T) {
	dsn, err := mysqlDSNFromURL("mysql://user:pw@db.internal/rental")
	require.NoError(t, err)
	assert.Contains(t, dsn, "user:pw@tcp(db.internal:3306)/rental?")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "parseTime=True")

	_, err = mysqlDSNFromURL("mysql://user:pw@db.internal")
	assert.Error(t, err)
}

func TestDialectorFor_Unknown(t *testing.T) {
	_, err := dialectorFor(Settings{DBDriver: "oracle"})
	assert.Error(t, err)
	t.Setenv("DATABASE_URL", "")
	_, err = dialectorFor(Settings{DBDriver: "postgres"})
	assert.Error(t, err)
}

func TestSeedDatabase_Idempotent(t *testing.T) {
	db, err := ConnectDatabase(Settings{DBDriver: "sqlite", SQLitePath: ":memory:", DBLogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, Migrate(db))

	require.NoError(t, SeedDatabase(db, zap.NewNop()))
	var areas, admins int64
	require.NoError(t, db.Model(&models.Area{}).Count(&areas).Error)
	assert.Positive(t, areas)

	require.NoError(t, SeedDatabase(db, zap.NewNop()))
	var again int64
	require.NoError(t, db.Model(&models.Area{}).Count(&again).Error)
	assert.Equal(t, areas, again)

	require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error)
	assert.EqualValues(t, 1, admins)
}

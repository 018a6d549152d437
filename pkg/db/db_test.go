package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDialect(t *testing.T) {
	for _, kind := range []string{"postgres", "mysql", "sqlite", " Postgres "} {
		d, err := Dialect(Config{Type: kind, Name: "enrollpay"})
		require.NoError(t, err, kind)
		assert.NotNil(t, d)
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
}

func TestIsDuplicateKeyErrSQLite(t *testing.T) {
	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`CREATE TABLE refs (reference TEXT PRIMARY KEY)`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO refs (reference) VALUES ('ENR_A')`).Error)
	err = conn.Exec(`INSERT INTO refs (reference) VALUES ('ENR_A')`).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKeyErr(err))
}

package services

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"srh_chat_go_backend/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testDBSeq int64

// newTestDB opens a private in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&testDBSeq, 1))

	db, err := database.Open(database.Options{Driver: "sqlite", SQLitePath: dsn})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

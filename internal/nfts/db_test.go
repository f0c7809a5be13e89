package nfts

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTokensTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS metadata (
  token_id INTEGER PRIMARY KEY,
  nft_contract TEXT NOT NULL,
  owner_address TEXT NOT NULL,
  name TEXT NOT NULL,
  image_uri TEXT NOT NULL DEFAULT '',
  last_synced_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

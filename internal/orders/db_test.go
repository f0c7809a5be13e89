package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_hash TEXT NOT NULL UNIQUE,
  token_id INTEGER,
  price_wei NUMERIC,
  nft_contract TEXT NOT NULL,
  marketplace_contract TEXT NOT NULL,
  seller_address TEXT NOT NULL,
  buyer_address TEXT,
  signed_order TEXT,
  image_uri TEXT,
  on_chain INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

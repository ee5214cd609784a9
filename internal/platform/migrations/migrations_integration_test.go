//go:build integration

package migrations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-retail-ops/internal/platform/migrations"
	"github.com/Apurer/go-retail-ops/internal/platform/postgres/pgtest"
)

func TestRun_CreatesEveryTableAndIsRepeatable(t *testing.T) {
	db := pgtest.Start(t)

	require.NoError(t, migrations.Run(db))

	for _, table := range migrations.Tables() {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("stock_movements", "idx_stock_movements_key"))
}

package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agrodash/backend/internal/infrastructure/telemetry"
)

func TestRegisterDBTracing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	t.Run("disabled is a no-op", func(t *testing.T) {
		err := telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{Enabled: false}, zap.NewNop())
		assert.NoError(t, err)
	})

	t.Run("enabled registers otelgorm", func(t *testing.T) {
		sr := recordSpans(t)
		err := telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{Enabled: true, DBName: "sqlite"}, zap.NewNop())
		require.NoError(t, err)

		var one int
		require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
		assert.Equal(t, 1, one)
		assert.NotEmpty(t, sr.Ended())
	})
}

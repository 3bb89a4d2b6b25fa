package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/partflow/internal/config"
	"github.com/JonMunkholm/partflow/internal/core"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"unique", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"foreign key", &pgconn.PgError{Code: "23503"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	require.NotNil(t, nullString("30ХГСА"))
	assert.Equal(t, "30ХГСА", *nullString("30ХГСА"))
	assert.Equal(t, "", deref(nil))
}

// openIntegrationStore connects to PARTFLOW_TEST_DATABASE_URL. The database
// should be disposable: tables are truncated before each test.
func openIntegrationStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("PARTFLOW_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PARTFLOW_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, config.DatabaseConfig{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx))
	_, err = s.pool.Exec(ctx, `TRUNCATE parts, route_template_stages, route_templates, stages RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return s
}

func TestStore_Integration(t *testing.T) {
	s := openIntegrationStore(t)
	ctx := context.Background()

	var tmpl *core.RouteTemplate
	err := s.WithinTx(ctx, func(tx core.Tx) error {
		tok, err := tx.EnsureStage(ctx, "Ток")
		if err != nil {
			return err
		}
		again, err := tx.EnsureStage(ctx, "Ток")
		if err != nil {
			return err
		}
		assert.Equal(t, tok.ID, again.ID)

		fr, err := tx.EnsureStage(ctx, "Фр")
		if err != nil {
			return err
		}
		var created bool
		tmpl, created, err = tx.CreateRouteTemplate(ctx, "Ток -> Фр", []core.Stage{tok, fr})
		assert.True(t, created)
		return err
	})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(tx core.Tx) error {
		dup, created, err := tx.CreateRouteTemplate(ctx, "Ток -> Фр", nil)
		if err != nil {
			return err
		}
		assert.False(t, created)
		assert.Equal(t, tmpl.ID, dup.ID)

		return tx.InsertPart(ctx, &core.Part{
			DesignationCode:    "АСЦБ-000459",
			ProductDesignation: "Наборка №3",
			Name:               "Болт осевой",
			QuantityTotal:      5,
			RouteTemplateID:    &tmpl.ID,
			CreatedBy:          "admin",
			CreatedAt:          time.Now(),
		})
	})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(tx core.Tx) error {
		return tx.InsertPart(ctx, &core.Part{
			DesignationCode:    "АСЦБ-000459",
			ProductDesignation: "Наборка №3",
			Name:               "Дубль",
			QuantityTotal:      1,
			CreatedBy:          "admin",
			CreatedAt:          time.Now(),
		})
	})
	assert.ErrorIs(t, err, core.ErrConflict)

	got, err := s.GetPart(ctx, "АСЦБ-000459")
	require.NoError(t, err)
	assert.Equal(t, "Болт осевой", got.Name)
	require.NotNil(t, got.RouteTemplate)
	assert.Len(t, got.RouteTemplate.Stages, 2)

	groups, err := s.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.ProductGroup{{Designation: "Наборка №3", PartCount: 1}}, groups)
}

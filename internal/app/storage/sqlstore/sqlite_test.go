package sqlstore

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/constants_registry/internal/app/domain/constant"
	"github.com/R3E-Network/constants_registry/internal/app/query"
	"github.com/R3E-Network/constants_registry/internal/app/storage"
	"github.com/R3E-Network/constants_registry/internal/app/storage/memory"
	"github.com/R3E-Network/constants_registry/internal/platform/migrations"
)

func newSQLite(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open(string(SQLite), SQLite.DSN(":memory:"))
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Apply(context.Background(), db))
	return New(db, SQLite)
}

func TestSQLiteRoundTrip(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertDomain(ctx, constant.Domain{Domain: "neo", Description: "Neo"}))
	require.NoError(t, store.UpsertDomain(ctx, constant.Domain{Domain: "neo", Description: "Neo"}))

	domains, err := store.ListDomains(ctx)
	require.NoError(t, err)
	assert.Len(t, domains, 1)

	gas := testConstant("GAS", "255", ptr("ff"), ptr("token"))
	require.NoError(t, store.UpsertConstant(ctx, gas))
	require.NoError(t, store.UpsertConstant(ctx, testConstant("HASH", "0xabc", nil, ptr("hash"))))
	require.NoError(t, store.UpsertConstant(ctx, testConstant("NOTE", "abc", nil, nil)))

	got, err := store.QueryConstants(ctx, query.Resolve("neo", query.Filter{Name: ptr("GAS")}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, gas, got[0])

	got, err = store.QueryConstants(ctx, query.Resolve("neo", query.Filter{Value: ptr("f"), Hex: true}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GAS", got[0].Name)

	got, err = store.QueryConstants(ctx, query.Resolve("neo", query.Filter{Tags: []string{"token", "hash"}}))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "GAS", got[0].Name)
	assert.Equal(t, "HASH", got[1].Name)

	tags, err := store.ListTags(ctx, "neo")
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Nil(t, tags[0])
	assert.Equal(t, "hash", *tags[1])
	assert.Equal(t, "token", *tags[2])
}

func TestSQLiteReferentialRules(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()

	err := store.UpsertConstant(ctx, constant.Constant{Domain: "missing", Name: "X", Value: "1", Description: "x"})
	assert.ErrorIs(t, err, storage.ErrForeignKey)

	got, err := store.QueryConstants(ctx, query.Resolve("missing", query.Filter{}))
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.UpsertDomain(ctx, constant.Domain{Domain: "neo", Description: "Neo"}))
	require.NoError(t, store.UpsertConstant(ctx, testConstant("GAS", "255", ptr("ff"), nil)))

	deleted, err := store.DeleteDomain(ctx, "neo")
	assert.False(t, deleted)
	assert.ErrorIs(t, err, storage.ErrForeignKey)

	deleted, err = store.DeleteConstant(ctx, "neo", "GAS")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteConstant(ctx, "neo", "GAS")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.DeleteDomain(ctx, "neo")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteDomain(ctx, "neo")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPrefixMatchAgreesAcrossGateways(t *testing.T) {
	ctx := context.Background()
	gateways := map[string]storage.Store{
		"sqlite": newSQLite(t),
		"memory": memory.New(),
	}
	for _, store := range gateways {
		require.NoError(t, store.UpsertDomain(ctx, constant.Domain{Domain: "neo", Description: "Neo"}))
		for _, v := range []string{"ABC", "abc", "%BC", "_BC", `a\b`, "Über"} {
			require.NoError(t, store.UpsertConstant(ctx, testConstant("N"+v, v, nil, nil)))
		}
	}

	tests := []struct {
		value string
		want  []string
	}{
		{"abc", []string{"abc"}},
		{"ABC", []string{"ABC"}},
		{"A", []string{"ABC"}},
		{"%BC", []string{"%BC"}},
		{"%", []string{"%BC"}},
		{"_BC", []string{"_BC"}},
		{"_", []string{"_BC"}},
		{`a\`, []string{`a\b`}},
		{"über", []string{}},
		{"Üb", []string{"Über"}},
	}
	for _, tt := range tests {
		for name, store := range gateways {
			got, err := store.QueryConstants(ctx, query.Resolve("neo", query.Filter{Value: ptr(tt.value)}))
			require.NoError(t, err, name)
			values := make([]string, 0, len(got))
			for _, c := range got {
				values = append(values, c.Value)
			}
			assert.Equal(t, tt.want, values, "%s: value=%q", name, tt.value)
		}
	}
}

func testConstant(name, value string, hex, tags *string) constant.Constant {
	return constant.Constant{
		Domain:      "neo",
		Name:        name,
		Value:       value,
		HexValue:    hex,
		Tags:        tags,
		Description: name,
	}
}

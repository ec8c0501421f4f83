package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogmem/cogmem/internal/errs"
)

func facadeImplementations(t *testing.T) map[string]Facade {
	sqliteFacade, err := NewSQLiteFacade("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteFacade.Close() })

	return map[string]Facade{
		"memory": NewMemoryFacade(),
		"sqlite": sqliteFacade,
	}
}

func TestFacadeCreateGetUpdateDelete(t *testing.T) {
	for name, f := range facadeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, f.Create(ctx, TableWorkspace, "w1", Record{"name": "demo"}))

			err := f.Create(ctx, TableWorkspace, "w1", Record{"name": "dup"})
			assert.ErrorIs(t, err, errs.AlreadyExists("", ""))

			rec, err := f.Get(ctx, TableWorkspace, "w1")
			require.NoError(t, err)
			assert.Equal(t, "demo", rec["name"])

			require.NoError(t, f.Update(ctx, TableWorkspace, "w1", Record{"name": "renamed"}))
			rec, err = f.Get(ctx, TableWorkspace, "w1")
			require.NoError(t, err)
			assert.Equal(t, "renamed", rec["name"])

			require.NoError(t, f.Delete(ctx, TableWorkspace, "w1"))
			require.NoError(t, f.Delete(ctx, TableWorkspace, "w1"), "delete is idempotent")

			_, err = f.Get(ctx, TableWorkspace, "w1")
			assert.ErrorIs(t, err, errs.NotFound("", ""))
		})
	}
}

func TestFacadeUpdateMissingFails(t *testing.T) {
	for name, f := range facadeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			err := f.Update(context.Background(), TableSession, "missing", Record{})
			assert.ErrorIs(t, err, errs.NotFound("", ""))
		})
	}
}

func TestFacadeQueryFiltersByEquals(t *testing.T) {
	for name, f := range facadeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, f.Create(ctx, TableEpisode, "e1", Record{"outcome": "Success"}))
			require.NoError(t, f.Create(ctx, TableEpisode, "e2", Record{"outcome": "Failure"}))
			require.NoError(t, f.Create(ctx, TableEpisode, "e3", Record{"outcome": "Success"}))

			recs, err := f.Query(ctx, TableEpisode, Predicate{Equals: map[string]any{"outcome": "Success"}}, 0)
			require.NoError(t, err)
			assert.Len(t, recs, 2)
		})
	}
}

func TestFacadeBulkApplyAllOrNothing(t *testing.T) {
	for name, f := range facadeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, f.Create(ctx, TableCodeUnit, "u1", Record{"name": "foo"}))

			ops := []Operation{
				{Kind: OpUpdate, Table: TableCodeUnit, ID: "u1", Record: Record{"name": "bar"}},
				{Kind: OpCreate, Table: TableCodeUnit, ID: "u1", Record: Record{"name": "conflict"}},
			}
			err := f.BulkApply(ctx, ops)
			assert.ErrorIs(t, err, errs.AlreadyExists("", ""))

			rec, err := f.Get(ctx, TableCodeUnit, "u1")
			require.NoError(t, err)
			assert.Equal(t, "foo", rec["name"], "failed batch must leave no partial mutation")
		})
	}
}

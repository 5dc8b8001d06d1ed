package riderrepo_test

import (
	"path/filepath"
	"testing"

	"dispatch/internal/adapters/out/postgres"
	"dispatch/internal/adapters/out/postgres/riderrepo"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRider(t *testing.T, name string) *rider.Rider {
	t.Helper()
	r, err := rider.NewRider(kernel.NewUUID(), name)
	require.NoError(t, err)
	return r
}

// runRepositoryTests checks the behaviour shared by every backing database.
func runRepositoryTests(t *testing.T, newRepo func(t *testing.T) ports.RiderRepository) {
	t.Run("should add and get a rider without its slot", func(t *testing.T) {
		repo := newRepo(t)
		r := newRider(t, "Alice")
		require.NoError(t, r.Take(kernel.NewUUID()))

		require.NoError(t, repo.Add(t.Context(), r.Snapshot()))
		got, err := repo.Get(t.Context(), r.ID())

		require.NoError(t, err)
		assert.True(t, got.IsEqual(r))
		assert.Equal(t, "Alice", got.Name())
		assert.True(t, got.IsAvailable())
		assert.True(t, got.IsFree())
	})

	t.Run("should refuse duplicates", func(t *testing.T) {
		repo := newRepo(t)
		r := newRider(t, "Alice")
		require.NoError(t, repo.Add(t.Context(), r.Snapshot()))

		require.ErrorIs(t, repo.Add(t.Context(), r.Snapshot()), errs.ErrValueIsInvalid)
	})

	t.Run("should update availability", func(t *testing.T) {
		repo := newRepo(t)
		r := newRider(t, "Alice")
		require.NoError(t, repo.Add(t.Context(), r.Snapshot()))
		r.SetAvailability(false)

		require.NoError(t, repo.Update(t.Context(), r.Snapshot()))
		got, err := repo.Get(t.Context(), r.ID())

		require.NoError(t, err)
		assert.False(t, got.IsAvailable())
	})

	t.Run("should report unknown riders", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Get(t.Context(), kernel.NewUUID())
		require.ErrorIs(t, err, errs.ErrObjectNotFound)

		err = repo.Update(t.Context(), newRider(t, "Ghost").Snapshot())
		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("should list riders by name", func(t *testing.T) {
		repo := newRepo(t)
		for _, name := range []string{"Carol", "Alice", "Bob"} {
			require.NoError(t, repo.Add(t.Context(), newRider(t, name).Snapshot()))
		}

		all, err := repo.GetAll(t.Context())

		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Alice", all[0].Name())
		assert.Equal(t, "Bob", all[1].Name())
		assert.Equal(t, "Carol", all[2].Name())
	})
}

func TestGormRiderRepository_SQLite(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) ports.RiderRepository {
		db, err := postgres.OpenSQLite(filepath.Join(t.TempDir(), "riders.db"), &riderrepo.RiderDTO{})
		require.NoError(t, err)
		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
		return riderrepo.NewGormRiderRepository(db)
	})
}

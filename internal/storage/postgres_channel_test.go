package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
)

var channelColumns = []string{"id", "cms_code", "cms_name", "owner_user_uuid", "created_by", "created_at", "updated_at", "is_deleted"}

func channelRow(id int64, code string, deleted bool) *sqlmock.Rows {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(channelColumns).AddRow(id, code, "Shop "+code, nil, "system", now, now, deleted)
}

const selectChannelByCode = `SELECT * FROM "chat_channel" WHERE lower(cms_code) = lower($1) AND is_deleted = $2`

func TestGetOrCreateChannel(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns existing channel case-insensitively", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectQuery(q(selectChannelByCode)).
			WithArgs("SHOP-1", false, sqlmock.AnyArg()).
			WillReturnRows(channelRow(3, "shop-1", false))

		ch, err := repo.GetOrCreateChannel(ctx, "SHOP-1", "Shop", "system", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), ch.ID)
		assert.Equal(t, "shop-1", ch.Code)
	})

	t.Run("Inserts when missing", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectQuery(q(selectChannelByCode)).WillReturnRows(sqlmock.NewRows(channelColumns))
		mock.ExpectQuery(q(`INSERT INTO "chat_channel"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		ch, err := repo.GetOrCreateChannel(ctx, "shop-7", "Shop 7", "admin", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(7), ch.ID)
		assert.Equal(t, "admin", ch.CreatedBy)
		assert.False(t, ch.IsDeleted)
	})

	t.Run("Losing the insert race returns the winner", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectQuery(q(selectChannelByCode)).WillReturnRows(sqlmock.NewRows(channelColumns))
		mock.ExpectQuery(q(`INSERT INTO "chat_channel"`)).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uk_chat_channel_code_live"})
		mock.ExpectQuery(q(selectChannelByCode)).WillReturnRows(channelRow(9, "shop-9", false))

		ch, err := repo.GetOrCreateChannel(ctx, "shop-9", "Shop 9", "system", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(9), ch.ID)
	})

	t.Run("Duplicate without a visible winner is a conflict", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectQuery(q(selectChannelByCode)).WillReturnRows(sqlmock.NewRows(channelColumns))
		mock.ExpectQuery(q(`INSERT INTO "chat_channel"`)).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectQuery(q(selectChannelByCode)).WillReturnRows(sqlmock.NewRows(channelColumns))

		_, err := repo.GetOrCreateChannel(ctx, "ghost", "Ghost", "system", nil)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestListChannels(t *testing.T) {
	repo, mock := newTestRepo(t)
	owner := "owner-uuid"
	mock.ExpectQuery(q(`SELECT * FROM "chat_channel" WHERE is_deleted = $1 AND owner_user_uuid = $2 ORDER BY created_at ASC, id ASC`)).
		WithArgs(false, owner).
		WillReturnRows(sqlmock.NewRows(channelColumns).
			AddRow(1, "a", "A", owner, "system", time.Now(), time.Now(), false).
			AddRow(2, "b", "B", owner, "system", time.Now(), time.Now(), false))

	channels, err := repo.ListChannels(context.Background(), &owner)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, int64(1), channels[0].ID)
}

func TestUpdateChannel(t *testing.T) {
	ctx := context.Background()

	t.Run("Updates name", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectQuery(q(`SELECT * FROM "chat_channel" WHERE id = $1`)).WillReturnRows(channelRow(4, "c4", false))
		mock.ExpectExec(q(`UPDATE "chat_channel" SET`)).WillReturnResult(sqlmock.NewResult(0, 1))

		name := "Renamed"
		ch, err := repo.UpdateChannel(ctx, 4, &name, nil, "admin")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", ch.Name)
		assert.Equal(t, "admin", ch.UpdatedBy)
	})

	t.Run("Deleted channel is not found", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectQuery(q(`SELECT * FROM "chat_channel" WHERE id = $1`)).WillReturnRows(channelRow(4, "c4", true))

		name := "Renamed"
		_, err := repo.UpdateChannel(ctx, 4, &name, nil, "admin")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestDeleteChannel(t *testing.T) {
	ctx := context.Background()
	lockChannel := `SELECT * FROM "chat_channel" WHERE id = $1`
	listThreads := `SELECT * FROM "chat_thread" WHERE channel_id = $1 AND is_deleted = $2 ORDER BY updated_at DESC, id DESC`

	t.Run("Threads without force is a conflict and writes nothing", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockChannel) + ".*FOR UPDATE").WillReturnRows(channelRow(1, "c1", false))
		mock.ExpectQuery(q(listThreads)).WillReturnRows(threadRows().
			AddRow(11, 1, "u-1", "Kim", nil, time.Now(), time.Now(), false).
			AddRow(12, 1, "u-2", "Lee", nil, time.Now(), time.Now(), false))
		mock.ExpectCommit()

		res, err := repo.DeleteChannel(ctx, 1, "admin", false)
		require.NoError(t, err)
		assert.False(t, res.Deleted)
		assert.True(t, res.Conflict)
		assert.True(t, res.ForceAvailable)
		assert.Len(t, res.Threads, 2)
	})

	t.Run("Force soft deletes threads then channel", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockChannel) + ".*FOR UPDATE").WillReturnRows(channelRow(1, "c1", false))
		mock.ExpectQuery(q(listThreads)).WillReturnRows(threadRows().
			AddRow(11, 1, "u-1", "Kim", nil, time.Now(), time.Now(), false))
		mock.ExpectExec(q(`UPDATE "chat_thread" SET`)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q(`UPDATE "chat_channel" SET`)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := repo.DeleteChannel(ctx, 1, "admin", true)
		require.NoError(t, err)
		assert.True(t, res.Deleted)
		assert.False(t, res.Conflict)
	})

	t.Run("Empty channel is deleted without force", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockChannel) + ".*FOR UPDATE").WillReturnRows(channelRow(2, "c2", false))
		mock.ExpectQuery(q(listThreads)).WillReturnRows(threadRows())
		mock.ExpectExec(q(`UPDATE "chat_channel" SET`) + `.*WHERE.*id = \$\d+ AND is_deleted = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := repo.DeleteChannel(ctx, 2, "admin", false)
		require.NoError(t, err)
		assert.True(t, res.Deleted)
	})

	t.Run("Already deleted succeeds", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockChannel) + ".*FOR UPDATE").WillReturnRows(channelRow(3, "c3", true))
		mock.ExpectCommit()

		res, err := repo.DeleteChannel(ctx, 3, "admin", false)
		require.NoError(t, err)
		assert.True(t, res.Deleted)
		assert.True(t, res.AlreadyDeleted)
	})

	t.Run("Missing channel rolls back", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockChannel) + ".*FOR UPDATE").WillReturnRows(sqlmock.NewRows(channelColumns))
		mock.ExpectRollback()

		_, err := repo.DeleteChannel(ctx, 404, "admin", true)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

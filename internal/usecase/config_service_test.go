package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

func ownedChannel(owner string) *model.Channel {
	return model.FakeChannel(func(c *model.Channel) { c.OwnerUserUUID = &owner })
}

func TestGetChannelConfig(t *testing.T) {
	t.Run("With stored settings", func(t *testing.T) {
		f := newFixture(t)
		c := ownedChannel("owner-1")
		f.channels.On("FindByOwner", mock.Anything, "owner-1", false).Return([]model.Channel{*c}, nil)
		f.settings.On("GetChannelSetting", mock.Anything, c.ID).
			Return(&model.ChannelSetting{ChannelID: c.ID, Config: datatypes.JSON(`{"color":"blue"}`)}, nil)

		cfg, err := f.svc.GetChannelConfig(context.Background(), "owner-1")
		require.NoError(t, err)
		assert.Equal(t, c.ID, cfg.ChannelID)
		assert.Equal(t, "owner-1", cfg.OwnerUserUUID)
		assert.JSONEq(t, `{"color":"blue"}`, string(cfg.Settings))
	})

	t.Run("Without settings", func(t *testing.T) {
		f := newFixture(t)
		c := ownedChannel("owner-2")
		f.channels.On("FindByOwner", mock.Anything, "owner-2", false).Return([]model.Channel{*c}, nil)
		f.settings.On("GetChannelSetting", mock.Anything, c.ID).Return(nil, apperrors.ErrNotFound)

		cfg, err := f.svc.GetChannelConfig(context.Background(), "owner-2")
		require.NoError(t, err)
		assert.Nil(t, cfg.Settings)
	})

	t.Run("Unknown owner", func(t *testing.T) {
		f := newFixture(t)
		f.channels.On("FindByOwner", mock.Anything, "ghost", false).Return([]model.Channel{}, nil)

		_, err := f.svc.GetChannelConfig(context.Background(), "ghost")
		assert.True(t, apperrors.IsNotFoundError(err))
	})
}

func TestSetChannelConfig(t *testing.T) {
	t.Run("Stores as admin", func(t *testing.T) {
		f := newFixture(t)
		c := ownedChannel("owner-1")
		body := json.RawMessage(`{"greeting":"hi"}`)
		f.channels.On("FindByOwner", mock.Anything, "owner-1", false).Return([]model.Channel{*c}, nil)
		f.settings.On("UpsertChannelSetting", mock.Anything, c.ID, datatypes.JSON(body), ConfigActor, fixedNow).
			Return(&model.ChannelSetting{ChannelID: c.ID, Config: datatypes.JSON(body)}, nil)

		cfg, err := f.svc.SetChannelConfig(context.Background(), "owner-1", body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"greeting":"hi"}`, string(cfg.Settings))
	})

	t.Run("Rejects non-object bodies", func(t *testing.T) {
		f := newFixture(t)
		for _, body := range []string{`[1,2]`, `"text"`, `null`, `{`} {
			_, err := f.svc.SetChannelConfig(context.Background(), "owner-1", json.RawMessage(body))
			assert.True(t, apperrors.IsValidationError(err), body)
		}
	})
}

func TestDeleteChannelConfig(t *testing.T) {
	f := newFixture(t)
	c := ownedChannel("owner-1")
	f.channels.On("FindByOwner", mock.Anything, "owner-1", false).Return([]model.Channel{*c}, nil)
	f.settings.On("DeleteChannelSetting", mock.Anything, c.ID).Return(nil)

	require.NoError(t, f.svc.DeleteChannelConfig(context.Background(), "owner-1"))
}

func TestListChannelConfigs(t *testing.T) {
	f := newFixture(t)
	first := ownedChannel("owner-1")
	second := ownedChannel("owner-1")
	orphan := model.FakeChannel()
	other := ownedChannel("owner-2")

	f.channels.On("List", mock.Anything, (*string)(nil)).Return([]model.Channel{*first, *orphan, *second, *other}, nil)
	f.settings.On("ListChannelSettings", mock.Anything).
		Return([]model.ChannelSetting{{ChannelID: other.ID, Config: datatypes.JSON(`{"a":1}`)}}, nil)

	out, err := f.svc.ListChannelConfigs(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, first.ID, out["owner-1"].ChannelID, "oldest channel wins")
	assert.JSONEq(t, `{"a":1}`, string(out["owner-2"].Settings))
}

func TestValidateOwner(t *testing.T) {
	f := newFixture(t)
	c := ownedChannel("owner-1")
	f.channels.On("FindByOwner", mock.Anything, "owner-1", false).Return([]model.Channel{*c}, nil)
	f.channels.On("FindByOwner", mock.Anything, "ghost", false).Return([]model.Channel{}, nil)

	res, err := f.svc.ValidateOwner(context.Background(), "  ")
	require.NoError(t, err)
	assert.False(t, res.Valid)

	res, err = f.svc.ValidateOwner(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "ghost", res.UUID)

	res, err = f.svc.ValidateOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, c.Code, res.Config.CmsCode)
	assert.Nil(t, res.Config.CreatedAt)
}

func TestChatSettings(t *testing.T) {
	f := newFixture(t)
	c := model.FakeChannel()
	f.channels.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	f.settings.On("UpsertChatSetting", mock.Anything, c.ID, "theme", "dark", "admin", fixedNow).
		Return(&model.ChatSetting{ChannelID: c.ID, Key: "theme", Value: "dark"}, nil)

	got, err := f.svc.PutChatSetting(context.Background(), c.ID, "theme", "dark", "admin")
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Value)

	_, err = f.svc.PutChatSetting(context.Background(), c.ID, " ", "x", "admin")
	assert.True(t, apperrors.IsValidationError(err))
}

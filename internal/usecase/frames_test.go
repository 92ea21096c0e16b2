package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

func TestHandleSendFrame(t *testing.T) {
	f := newFixture(t)
	thread := model.FakeThread(2)
	var appended []*model.Message
	var mu sync.Mutex

	f.threads.On("FindByID", mock.Anything, thread.ID).Return(thread, nil)
	f.expectAppends(&appended, &mu).Once()
	f.threads.On("Touch", mock.Anything, thread.ID, mock.Anything, mock.Anything).Return(nil).Once()

	err := f.svc.HandleSendFrame(context.Background(), &model.InboundFrame{
		Type:       model.FrameSendMessage,
		ThreadID:   thread.ID,
		SenderType: model.SenderAdmin,
		SenderName: "agent",
		Content:    "on it",
		Actor:      "agent-7",
	})
	require.NoError(t, err)
	require.Len(t, appended, 1)
	assert.Equal(t, "on it", appended[0].Content)
	assert.Equal(t, "agent", appended[0].SenderName)
	assert.Equal(t, "agent-7", appended[0].CreatedBy)
}

func TestHandleSendFrameRejectsBlankContent(t *testing.T) {
	f := newFixture(t)
	err := f.svc.HandleSendFrame(context.Background(), &model.InboundFrame{ThreadID: 2, SenderType: model.SenderUser, Content: "  "})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestHandleReadFrame(t *testing.T) {
	f := newFixture(t)
	thread := model.FakeThread(2)
	f.threads.On("FindByID", mock.Anything, thread.ID).Return(thread, nil)
	f.messages.On("MarkAllUnreadAsRead", mock.Anything, thread.ID, fixedNow, model.DefaultActor).Return(int64(1), nil)
	f.threads.On("UpdateLastRead", mock.Anything, thread.ID, fixedNow).Return(nil)

	require.NoError(t, f.svc.HandleReadFrame(context.Background(), &model.InboundFrame{ThreadID: thread.ID}))
}

func TestHandleSessionFrames(t *testing.T) {
	f := newFixture(t)
	thread := model.FakeThread(2)
	f.threads.On("FindByID", mock.Anything, thread.ID).Return(thread, nil)
	f.sessions.On("Start", mock.Anything, thread.ID, "s-1", fixedNow).Return(&model.SessionLog{ThreadID: thread.ID}, nil)
	f.sessions.On("End", mock.Anything, thread.ID, "s-1", "tab closed", fixedNow).Return(&model.SessionLog{ThreadID: thread.ID}, nil)

	require.NoError(t, f.svc.HandleSessionStartFrame(context.Background(), &model.InboundFrame{ThreadID: thread.ID, SessionID: "s-1"}))
	require.NoError(t, f.svc.HandleSessionEndFrame(context.Background(), &model.InboundFrame{ThreadID: thread.ID, SessionID: "s-1", Reason: "tab closed"}))
}

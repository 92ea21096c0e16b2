//go:build integration

package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/usecase"
)

const (
	eventuallyWait = 10 * time.Second
	eventuallyTick = 100 * time.Millisecond
)

func (s *ChatDeliverySuite) TestHTTPConversationFlow() {
	_, thread := s.createThread("it-http", "visitor-1")

	page := s.listMessages(thread.ID)
	s.Require().Len(page.Content, 1, "new thread gets the welcome message")
	s.Equal(welcomeText, page.Content[0].Content)

	var res usecase.SendResult
	status, _ := s.call(http.MethodPost, fmt.Sprintf("/threads/%d/messages", thread.ID), map[string]string{
		"senderType": model.SenderUser,
		"senderName": "Visitor",
		"content":    "my order has not arrived",
	}, &res)
	s.Require().Equal(http.StatusOK, status)
	s.Nil(res.AutoReply)
	s.Equal(int64(1), s.unread(thread.ID))

	page = s.listMessages(thread.ID)
	s.Require().Len(page.Content, 2)
	s.Equal(int64(2), page.TotalElements)

	var edited model.MessageDTO
	status, _ = s.call(http.MethodPut, fmt.Sprintf("/messages/%d", res.Message.ID), map[string]string{"content": "my order is late"}, &edited)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("my order is late", edited.Content)

	status, env := s.call(http.MethodDelete, fmt.Sprintf("/messages/%d", res.Message.ID), nil, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("deleted", env.Message)
}

func (s *ChatDeliverySuite) TestInboundFrameIsPersistedAndBroadcast() {
	_, thread := s.createThread("it-inbound", "visitor-2")

	sub, err := s.jsClient.NatsConn().SubscribeSync(fmt.Sprintf("chat.%d", thread.ID))
	s.Require().NoError(err)
	defer func() { _ = sub.Unsubscribe() }()
	s.Require().NoError(s.jsClient.NatsConn().Flush())

	frame := model.FakeFrame(thread.ID, model.FrameSendMessage)
	frame.Content = "hello from a socket client"
	raw, err := json.Marshal(frame)
	s.Require().NoError(err)
	s.publishFrame(thread.ID, model.FrameSendMessage, raw)

	msg, err := sub.NextMsg(eventuallyWait)
	s.Require().NoError(err)
	var event model.Event
	s.Require().NoError(json.Unmarshal(msg.Data, &event))
	s.Equal(model.EventMessageCreated, event.Type)
	s.Equal(thread.ID, event.ThreadID)
	s.Equal("hello from a socket client", event.Message.Content)

	s.Eventually(func() bool {
		return s.listMessages(thread.ID).TotalElements == 2
	}, eventuallyWait, eventuallyTick)
}

func (s *ChatDeliverySuite) TestInvalidFrameDoesNotBlockLaterFrames() {
	_, thread := s.createThread("it-poison", "visitor-3")

	s.publishFrame(thread.ID, model.FrameSendMessage, []byte(`{"thread_id": "not-a-number"`))
	s.publishFrame(thread.ID+1000, model.FrameSendMessage, mustJSON(s, model.FakeFrame(thread.ID+1000, model.FrameSendMessage)))

	valid := model.FakeFrame(thread.ID, model.FrameSendMessage)
	valid.Content = "still delivered"
	s.publishFrame(thread.ID, model.FrameSendMessage, mustJSON(s, valid))

	s.Eventually(func() bool {
		for _, m := range s.listMessages(thread.ID).Content {
			if m.Content == "still delivered" {
				return true
			}
		}
		return false
	}, eventuallyWait, eventuallyTick)
}

func (s *ChatDeliverySuite) TestReadFrameClearsUnread() {
	_, thread := s.createThread("it-read", "visitor-4")

	for i := 0; i < 3; i++ {
		s.publishFrame(thread.ID, model.FrameSendMessage, mustJSON(s, model.FakeFrame(thread.ID, model.FrameSendMessage)))
	}
	s.Eventually(func() bool { return s.unread(thread.ID) == 3 }, eventuallyWait, eventuallyTick)

	s.publishFrame(thread.ID, model.FrameMarkRead, mustJSON(s, model.FakeFrame(thread.ID, model.FrameMarkRead)))
	s.Eventually(func() bool { return s.unread(thread.ID) == 0 }, eventuallyWait, eventuallyTick)
}

func (s *ChatDeliverySuite) TestSessionFramesAreLogged() {
	_, thread := s.createThread("it-session", "visitor-5")

	start := model.FakeFrame(thread.ID, model.FrameSessionStart)
	s.publishFrame(thread.ID, model.FrameSessionStart, mustJSON(s, start))

	end := model.FakeFrame(thread.ID, model.FrameSessionEnd)
	end.SessionID = start.SessionID
	s.publishFrame(thread.ID, model.FrameSessionEnd, mustJSON(s, end))

	s.Eventually(func() bool {
		var ended bool
		err := s.db.QueryRowContext(s.Ctx,
			"SELECT ended_at IS NOT NULL FROM chat_session_log WHERE session_id = $1", start.SessionID,
		).Scan(&ended)
		return err == nil && ended
	}, eventuallyWait, eventuallyTick)
}

func mustJSON(s *ChatDeliverySuite, v interface{}) []byte {
	raw, err := json.Marshal(v)
	s.Require().NoError(err)
	return raw
}

//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/httpapi"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

// call sends a JSON request to the API and decodes the envelope into out when given.
func (s *ChatDeliverySuite) call(method, path string, body interface{}, out interface{}) (int, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(s.Ctx, method, s.api.URL+httpapi.BasePath+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor", "it-suite")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&env), "%s %s", method, path)
	}
	if out != nil && len(env.Data) > 0 {
		s.Require().NoError(json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode, env
}

// createThread makes a channel and a thread for one visitor.
func (s *ChatDeliverySuite) createThread(code, user string) (model.Channel, model.Thread) {
	var channel model.Channel
	status, _ := s.call(http.MethodPost, "/channels", map[string]string{"cmsCode": code, "cmsName": "Support " + code}, &channel)
	s.Require().Equal(http.StatusOK, status)
	s.Require().NotZero(channel.ID)

	var thread model.Thread
	status, _ = s.call(http.MethodPost, "/threads", map[string]interface{}{
		"channelId":      channel.ID,
		"userIdentifier": user,
		"userName":       "Visitor " + user,
	}, &thread)
	s.Require().Equal(http.StatusCreated, status)
	s.Require().NotZero(thread.ID)
	return channel, thread
}

func (s *ChatDeliverySuite) listMessages(threadID int64) model.MessageDTOPage {
	var page model.MessageDTOPage
	status, _ := s.call(http.MethodGet, fmt.Sprintf("/threads/%d/messages?size=50", threadID), nil, &page)
	s.Require().Equal(http.StatusOK, status)
	return page
}

func (s *ChatDeliverySuite) unread(threadID int64) int64 {
	var out struct {
		UnreadCount int64 `json:"unreadCount"`
	}
	status, _ := s.call(http.MethodGet, fmt.Sprintf("/threads/%d/unread", threadID), nil, &out)
	s.Require().Equal(http.StatusOK, status)
	return out.UnreadCount
}

// publishFrame puts a raw frame on the inbound stream and waits for the JetStream ack.
func (s *ChatDeliverySuite) publishFrame(threadID int64, ft model.FrameType, payload []byte) {
	js, err := s.jsClient.NatsConn().JetStream()
	s.Require().NoError(err)
	_, err = js.Publish(model.InboundSubject(threadID, ft), payload)
	s.Require().NoError(err)
}

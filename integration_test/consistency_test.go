//go:build integration

package integration_test

import (
	"sync"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/storage"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/usecase"
)

const concurrentCallers = 12

func (s *ChatDeliverySuite) TestConcurrentCreateChannelKeepsOneLiveRow() {
	ids := make([]int64, concurrentCallers)
	var wg sync.WaitGroup
	for i := 0; i < concurrentCallers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			channel, err := s.service.CreateChannel(s.Ctx, usecase.CreateChannelRequest{Code: "Race", Name: "Race desk"})
			if s.NoError(err) {
				ids[i] = channel.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		s.Equal(ids[0], id, "every caller resolves the same channel")
	}

	var rows int
	s.Require().NoError(s.db.QueryRowContext(s.Ctx,
		"SELECT COUNT(*) FROM chat_channel WHERE lower(cms_code) = 'race' AND is_deleted = false",
	).Scan(&rows))
	s.Equal(1, rows)
}

func (s *ChatDeliverySuite) TestConcurrentGetOrCreateThreadSendsOneWelcome() {
	channel, err := s.service.CreateChannel(s.Ctx, usecase.CreateChannelRequest{Code: "it-race-thread"})
	s.Require().NoError(err)

	req := usecase.CreateThreadRequest{ChannelID: channel.ID, UserIdentifier: "visitor-race", UserName: "Racer"}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		threadID int64
	)
	for i := 0; i < concurrentCallers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			thread, isNew, err := s.service.GetOrCreateThread(s.Ctx, req)
			if !s.NoError(err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if isNew {
				created++
			}
			if threadID == 0 {
				threadID = thread.ID
			}
			s.Equal(threadID, thread.ID)
		}()
	}
	wg.Wait()
	s.Equal(1, created, "exactly one caller inserts the thread")

	var threads, welcomes int
	s.Require().NoError(s.db.QueryRowContext(s.Ctx,
		"SELECT COUNT(*) FROM chat_thread WHERE channel_id = $1 AND user_identifier = $2", channel.ID, req.UserIdentifier,
	).Scan(&threads))
	s.Require().NoError(s.db.QueryRowContext(s.Ctx,
		"SELECT COUNT(*) FROM chat_message WHERE thread_id = $1 AND content = $2", threadID, welcomeText,
	).Scan(&welcomes))
	s.Equal(1, threads)
	s.Equal(1, welcomes)
}

func (s *ChatDeliverySuite) TestBatchAndSingleUnreadCountsAgree() {
	channel, first := s.createThread("it-unread-agree", "visitor-a")
	second, _, err := s.service.GetOrCreateThread(s.Ctx, usecase.CreateThreadRequest{ChannelID: channel.ID, UserIdentifier: "visitor-b"})
	s.Require().NoError(err)

	assertAgree := func(want map[int64]int64, stage string) {
		summaries, err := s.service.ListThreadsWithUnread(s.Ctx, channel.ID)
		s.Require().NoError(err)
		s.Require().Len(summaries, len(want), stage)
		for _, summary := range summaries {
			single, err := s.service.CountUnread(s.Ctx, summary.ID)
			s.Require().NoError(err)
			s.Equal(want[summary.ID], summary.UnreadCount, "%s: batch count of thread %d", stage, summary.ID)
			s.Equal(want[summary.ID], single, "%s: single count of thread %d", stage, summary.ID)
		}
	}

	s.sendUser(first.ID, "one")
	s.sendUser(first.ID, "two")
	s.sendUser(first.ID, "three")
	s.sendUser(second.ID, "hello")
	assertAgree(map[int64]int64{first.ID: 3, second.ID: 1}, "after send")

	_, err = s.service.MarkRead(s.Ctx, first.ID, "it-suite")
	s.Require().NoError(err)
	assertAgree(map[int64]int64{first.ID: 0, second.ID: 1}, "after mark read")

	s.sendUser(first.ID, "four")
	assertAgree(map[int64]int64{first.ID: 1, second.ID: 1}, "after sending again")
}

func (s *ChatDeliverySuite) TestUnreadCountsOnlyMessagesCreatedAfterLastRead() {
	_, thread := s.createThread("it-watermark", "visitor-w")
	before := s.sendUser(thread.ID, "before")

	res, err := s.service.MarkRead(s.Ctx, thread.ID, "it-suite")
	s.Require().NoError(err)
	s.False(before.CreatedAt.After(res.ReadAt))

	// a message stamped exactly at the watermark is already read
	_, err = s.db.ExecContext(s.Ctx,
		`INSERT INTO chat_message (thread_id, sender_type, sender_name, message_type, content, is_read, is_deleted, created_at, updated_at, created_by, updated_by)
		 VALUES ($1, $2, 'Visitor', $3, 'at watermark', false, false, $4, $4, 'it-suite', 'it-suite')`,
		thread.ID, model.SenderUser, model.MessageText, res.ReadAt)
	s.Require().NoError(err)
	s.Equal(int64(0), s.unread(thread.ID))

	s.sendUser(thread.ID, "after")
	s.Equal(int64(1), s.unread(thread.ID))
}

func (s *ChatDeliverySuite) TestPagingVisitsEveryMessageOnce() {
	_, thread := s.createThread("it-paging", "visitor-p")
	for i := 0; i < 25; i++ {
		s.sendUser(thread.ID, "message")
	}

	seen := map[int64]int{}
	var previous *model.MessageDTO
	for page := 0; page < 3; page++ {
		p, err := s.service.ListMessages(s.Ctx, thread.ID, page, 10)
		s.Require().NoError(err)
		s.Equal(int64(26), p.TotalElements, "welcome plus 25 messages")
		s.Equal(3, p.TotalPages)
		for i := range p.Content {
			m := p.Content[i]
			seen[m.ID]++
			if previous != nil {
				s.False(m.CreatedAt.Before(previous.CreatedAt), "page %d is in created_at order", page)
			}
			previous = &m
		}
	}

	s.Len(seen, 26)
	for id, n := range seen {
		s.Equal(1, n, "message %d listed once", id)
	}

	last, err := s.service.ListMessages(s.Ctx, thread.ID, 3, 10)
	s.Require().NoError(err)
	s.Empty(last.Content)
}

func (s *ChatDeliverySuite) TestAutoReplyDirectlyFollowsUserMessage() {
	closed := usecase.NewChatService(storage.NewRepositories(s.repo), closedGate{}, nil, usecase.NoThrottle{}, nil, usecase.Options{})
	_, thread := s.createThread("it-after-hours", "visitor-n")

	res, err := closed.SendText(s.Ctx, usecase.SendTextRequest{
		ThreadID:   thread.ID,
		SenderType: model.SenderUser,
		SenderName: "Night owl",
		Content:    "anyone there?",
	})
	s.Require().NoError(err)
	s.Require().NotNil(res.AutoReply)
	s.True(res.AutoReply.CreatedAt.After(res.Message.CreatedAt))

	page := s.listMessages(thread.ID)
	s.Require().Len(page.Content, 3, "welcome, user message, auto-reply")
	s.Equal(res.Message.ID, page.Content[1].ID)
	s.Equal(res.AutoReply.ID, page.Content[2].ID)
	s.Equal(model.SenderAdmin, page.Content[2].SenderType)
	s.Equal("closed", page.Content[2].Content)
}

func (s *ChatDeliverySuite) sendUser(threadID int64, content string) model.MessageDTO {
	res, err := s.service.SendText(s.Ctx, usecase.SendTextRequest{
		ThreadID:   threadID,
		SenderType: model.SenderUser,
		SenderName: "Visitor",
		Content:    content,
	})
	s.Require().NoError(err)
	return res.Message
}

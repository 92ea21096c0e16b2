package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/bizhours"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/filestore"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/observer"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/validator"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

const (
	originClient    = "client"
	originWelcome   = "welcome"
	originAutoReply = "auto_reply"
)

// SendText stores a text message and broadcasts it. A USER message received while the desk is
// closed is followed, in the same call, by one ADMIN auto-reply unless the throttle holds it back.
func (s *ChatService) SendText(ctx context.Context, req SendTextRequest) (*SendResult, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	thread, err := s.threads.FindByID(ctx, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("find thread %d: %w", req.ThreadID, err)
	}

	actor := actorOrDefault(req.Actor)
	msg := model.NewMessage(thread.ID, req.SenderType, req.SenderName, model.MessageText, req.Content, nil, actor, s.now())
	dto, err := s.appendAndBroadcast(ctx, thread, msg, originClient)
	if err != nil {
		return nil, err
	}

	result := &SendResult{Message: dto}
	if req.SenderType == model.SenderUser {
		result.AutoReply = s.maybeAutoReply(ctx, thread, msg)
	}
	return result, nil
}

// SendFile stores a message referencing an uploaded file and broadcasts it. An empty message
// type is inferred from the file name.
func (s *ChatService) SendFile(ctx context.Context, req SendFileRequest) (*model.MessageDTO, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	thread, err := s.threads.FindByID(ctx, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("find thread %d: %w", req.ThreadID, err)
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = messageTypeFor(req.FileName)
	}
	file := &model.FileMeta{Name: req.FileName, URL: req.FileURL}
	msg := model.NewMessage(thread.ID, req.SenderType, req.SenderName, msgType, "", file, actorOrDefault(req.Actor), s.now())
	dto, err := s.appendAndBroadcast(ctx, thread, msg, originClient)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// UploadFile stores the blob and then sends it as a file message.
func (s *ChatService) UploadFile(ctx context.Context, threadID int64, senderType, senderName, actor string, meta filestore.Meta, r io.Reader) (*model.MessageDTO, error) {
	if s.files == nil {
		return nil, fmt.Errorf("%w: file storage is not configured", apperrors.ErrDependencyDegraded)
	}
	if err := validator.ValidateVar(senderType, "oneof=USER ADMIN"); err != nil {
		return nil, fmt.Errorf("senderType: %w", err)
	}
	if _, err := s.threads.FindByID(ctx, threadID); err != nil {
		return nil, fmt.Errorf("find thread %d: %w", threadID, err)
	}

	blob, err := s.files.StoreBlob(ctx, r, meta)
	if err != nil {
		return nil, fmt.Errorf("store upload %q: %w", meta.Name, err)
	}
	return s.SendFile(ctx, SendFileRequest{
		ThreadID:    threadID,
		SenderType:  senderType,
		SenderName:  senderName,
		FileName:    meta.Name,
		FileURL:     blob.URL,
		MessageType: messageTypeForContent(meta.ContentType, meta.Name),
		Actor:       actor,
	})
}

func messageTypeFor(fileName string) string {
	switch strings.ToLower(fileName[strings.LastIndex(fileName, ".")+1:]) {
	case "png", "jpg", "jpeg", "gif", "webp", "bmp":
		return model.MessageImage
	default:
		return model.MessageFile
	}
}

func messageTypeForContent(contentType, fileName string) string {
	if strings.HasPrefix(contentType, "image/") {
		return model.MessageImage
	}
	return messageTypeFor(fileName)
}

// EditMessage replaces the content of a live message and broadcasts the update.
func (s *ChatService) EditMessage(ctx context.Context, messageID int64, content, actor string) (*model.MessageDTO, error) {
	if err := validator.ValidateVar(content, "notblank"); err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	msg, err := s.messages.Edit(ctx, messageID, content, actorOrDefault(actor), s.now())
	if err != nil {
		return nil, fmt.Errorf("edit message %d: %w", messageID, err)
	}
	dto := s.messageDTO(ctx, msg)
	s.broadcaster.Broadcast(ctx, model.NewEvent(model.EventMessageUpdated, dto, s.now()))
	return &dto, nil
}

// DeleteMessage soft-deletes a message and broadcasts the removal. Deleting an already deleted
// message succeeds without a second broadcast.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID int64, actor string) (*model.MessageDTO, error) {
	at := s.now()
	msg, err := s.messages.SoftDelete(ctx, messageID, actorOrDefault(actor), at)
	if err != nil {
		return nil, fmt.Errorf("delete message %d: %w", messageID, err)
	}
	dto := s.messageDTO(ctx, msg)
	if msg.DeletedAt != nil && msg.DeletedAt.Equal(at) {
		s.broadcaster.Broadcast(ctx, model.NewEvent(model.EventMessageDeleted, dto, at))
	}
	return &dto, nil
}

// ListMessages returns one page of the visible messages of a thread, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, threadID int64, page, size int) (*model.MessageDTOPage, error) {
	thread, err := s.threads.FindByID(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("find thread %d: %w", threadID, err)
	}
	p, err := s.messages.ListByThread(ctx, threadID, page, size)
	if err != nil {
		return nil, fmt.Errorf("list messages of thread %d: %w", threadID, err)
	}
	out := model.NewMessageDTOPage(p, thread)
	return &out, nil
}

// MarkRead marks every unread message of the thread as read and advances the thread's
// last_read_at. Both writes use the same timestamp.
func (s *ChatService) MarkRead(ctx context.Context, threadID int64, actor string) (*ReadResult, error) {
	if _, err := s.threads.FindByID(ctx, threadID); err != nil {
		return nil, fmt.Errorf("find thread %d: %w", threadID, err)
	}

	readAt := s.now()
	marked, err := s.messages.MarkAllUnreadAsRead(ctx, threadID, readAt, actorOrDefault(actor))
	if err != nil {
		return nil, fmt.Errorf("mark thread %d read: %w", threadID, err)
	}
	if err := s.threads.UpdateLastRead(ctx, threadID, readAt); err != nil {
		return nil, fmt.Errorf("advance last read of thread %d: %w", threadID, err)
	}
	logger.FromContext(ctx).Debug("Thread marked read", zap.Int64("thread_id", threadID), zap.Int64("marked", marked))
	return &ReadResult{ThreadID: threadID, Marked: marked, ReadAt: readAt}, nil
}

// CountUnread returns the number of unread USER messages of a thread.
func (s *ChatService) CountUnread(ctx context.Context, threadID int64) (int64, error) {
	n, err := s.messages.CountUnread(ctx, threadID)
	if err != nil {
		return 0, fmt.Errorf("count unread of thread %d: %w", threadID, err)
	}
	return n, nil
}

// BusinessHoursStatus reports whether the desk is open right now.
func (s *ChatService) BusinessHoursStatus(ctx context.Context) bizhours.Status {
	return s.gate.CurrentStatus(ctx)
}

// CreateWelcomeMessage injects the greeting into a freshly created thread. Failures are logged
// and swallowed.
func (s *ChatService) CreateWelcomeMessage(ctx context.Context, thread *model.Thread, actor string) {
	if !s.opts.WelcomeEnabled || s.opts.WelcomeMessage == "" {
		return
	}
	defer utils.RecoverWithLog(ctx, "welcome message")
	msg := model.NewMessage(thread.ID, model.SenderAdmin, SystemSenderName, model.MessageText, s.opts.WelcomeMessage, nil, actorOrDefault(actor), s.now())
	if _, err := s.appendAndBroadcast(ctx, thread, msg, originWelcome); err != nil {
		logger.FromContext(ctx).Warn("Failed to create welcome message",
			zap.Int64("thread_id", thread.ID), zap.Error(err))
	}
}

// SendWelcome injects the greeting on demand and reports failures to the caller.
func (s *ChatService) SendWelcome(ctx context.Context, threadID int64, actor string) (*model.MessageDTO, error) {
	if s.opts.WelcomeMessage == "" {
		return nil, fmt.Errorf("%w: welcome message is not configured", apperrors.ErrBadRequest)
	}
	thread, err := s.threads.FindByID(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("find thread %d: %w", threadID, err)
	}
	msg := model.NewMessage(thread.ID, model.SenderAdmin, SystemSenderName, model.MessageText, s.opts.WelcomeMessage, nil, actorOrDefault(actor), s.now())
	dto, err := s.appendAndBroadcast(ctx, thread, msg, originWelcome)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// maybeAutoReply runs after the user message has been stored and broadcast. Failures are
// logged and swallowed.
func (s *ChatService) maybeAutoReply(ctx context.Context, thread *model.Thread, trigger *model.Message) *model.MessageDTO {
	if s.gate.IsOpen(ctx, trigger.CreatedAt) {
		return nil
	}
	log := logger.FromContext(ctx).With(zap.Int64("thread_id", thread.ID), zap.Int64("trigger_message_id", trigger.ID))
	if !s.throttle.Allow(ctx, thread.ID) {
		observer.IncAutoReply(false)
		log.Debug("Auto-reply throttled")
		return nil
	}

	now := s.now()
	if !now.After(trigger.CreatedAt) {
		// keep the reply strictly after the trigger in created_at order
		now = trigger.CreatedAt.Add(time.Microsecond)
	}
	reply := model.NewMessage(thread.ID, model.SenderAdmin, SystemSenderName, model.MessageText, s.gate.ClosedMessage(), nil, model.DefaultActor, now)
	dto, err := s.appendAndBroadcast(ctx, thread, reply, originAutoReply)
	if err != nil {
		log.Warn("Failed to send auto-reply", zap.Error(err))
		return nil
	}
	observer.IncAutoReply(true)
	return &dto
}

// appendAndBroadcast persists msg, bumps the thread's activity timestamp and announces the
// message. Only the insert can fail the call.
func (s *ChatService) appendAndBroadcast(ctx context.Context, thread *model.Thread, msg *model.Message, origin string) (model.MessageDTO, error) {
	if err := s.messages.Append(ctx, msg); err != nil {
		return model.MessageDTO{}, fmt.Errorf("append %s message to thread %d: %w", origin, thread.ID, err)
	}
	observer.IncMessagesStored(msg.SenderType, msg.MessageType, origin)

	if err := s.threads.Touch(ctx, thread.ID, msg.UpdatedBy, msg.CreatedAt); err != nil {
		logger.FromContext(ctx).Warn("Failed to bump thread activity",
			zap.Int64("thread_id", thread.ID), zap.Int64("message_id", msg.ID), zap.Error(err))
	}

	dto := model.NewMessageDTO(msg, thread)
	s.broadcaster.Broadcast(ctx, model.NewEvent(model.EventMessageCreated, dto, s.now()))
	return dto, nil
}

// messageDTO attaches thread identity when the thread is still visible.
func (s *ChatService) messageDTO(ctx context.Context, msg *model.Message) model.MessageDTO {
	thread, err := s.threads.FindByID(ctx, msg.ThreadID)
	if err != nil {
		logger.FromContext(ctx).Debug("Thread lookup for message failed", zap.Int64("message_id", msg.ID), zap.Error(err))
		thread = nil
	}
	return model.NewMessageDTO(msg, thread)
}

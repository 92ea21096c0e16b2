package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/validator"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// CreateChannel returns the live channel with the given code, creating it when missing.
func (s *ChatService) CreateChannel(ctx context.Context, req CreateChannelRequest) (*model.Channel, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	channel, err := s.channels.GetOrCreate(ctx, req.Code, req.Name, actorOrDefault(req.Actor), req.OwnerUserUUID)
	if err != nil {
		return nil, fmt.Errorf("get or create channel %q: %w", req.Code, err)
	}
	return channel, nil
}

// ListChannelsWithUnread lists live channels, optionally filtered by owner, each with the
// unread total of its threads.
func (s *ChatService) ListChannelsWithUnread(ctx context.Context, ownerID *string) ([]model.ChannelSummary, error) {
	channels, err := s.channels.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	out := make([]model.ChannelSummary, 0, len(channels))
	if len(channels) == 0 {
		return out, nil
	}

	channelIDs := make([]int64, 0, len(channels))
	for _, c := range channels {
		channelIDs = append(channelIDs, c.ID)
	}
	threads, err := s.threads.ListByChannels(ctx, channelIDs)
	if err != nil {
		return nil, fmt.Errorf("list threads of %d channels: %w", len(channelIDs), err)
	}
	counts, err := s.unreadCounts(ctx, threads)
	if err != nil {
		return nil, err
	}

	perChannel := make(map[int64]int64, len(channels))
	for _, t := range threads {
		perChannel[t.ChannelID] += counts[t.ID]
	}
	for _, c := range channels {
		out = append(out, model.ChannelSummary{Channel: c, UnreadCount: perChannel[c.ID]})
	}
	return out, nil
}

// UpdateChannel changes name and/or owner of a live channel.
func (s *ChatService) UpdateChannel(ctx context.Context, id int64, req UpdateChannelRequest) (*model.Channel, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	channel, err := s.channels.Update(ctx, id, req.Name, req.OwnerUserUUID, actorOrDefault(req.Actor))
	if err != nil {
		return nil, fmt.Errorf("update channel %d: %w", id, err)
	}
	return channel, nil
}

// DeleteChannel soft-deletes a channel. Without force a channel that still has live threads
// is left untouched and the result carries those threads.
func (s *ChatService) DeleteChannel(ctx context.Context, id int64, actor string, force bool) (*model.DeleteChannelResult, error) {
	res, err := s.channels.Delete(ctx, id, actorOrDefault(actor), force)
	if err != nil {
		return nil, fmt.Errorf("delete channel %d: %w", id, err)
	}
	log := logger.FromContext(ctx)
	switch {
	case res.Conflict:
		log.Info("Channel delete refused, live threads remain",
			zap.Int64("channel_id", id), zap.Int("threads", len(res.Threads)))
	case res.AlreadyDeleted:
		log.Debug("Channel already deleted", zap.Int64("channel_id", id))
	default:
		log.Info("Channel deleted", zap.Int64("channel_id", id), zap.Bool("force", force))
	}
	return res, nil
}

// ListThreadsWithUnread lists the live threads of a live channel, most recently active first.
func (s *ChatService) ListThreadsWithUnread(ctx context.Context, channelID int64) ([]model.ThreadSummary, error) {
	if _, err := s.liveChannel(ctx, channelID); err != nil {
		return nil, err
	}
	threads, err := s.threads.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("list threads of channel %d: %w", channelID, err)
	}
	counts, err := s.unreadCounts(ctx, threads)
	if err != nil {
		return nil, err
	}
	out := make([]model.ThreadSummary, 0, len(threads))
	for _, t := range threads {
		out = append(out, model.ThreadSummary{Thread: t, UnreadCount: counts[t.ID]})
	}
	return out, nil
}

func (s *ChatService) unreadCounts(ctx context.Context, threads []model.Thread) (map[int64]int64, error) {
	if len(threads) == 0 {
		return map[int64]int64{}, nil
	}
	ids := make([]int64, 0, len(threads))
	for _, t := range threads {
		ids = append(ids, t.ID)
	}
	counts, err := s.messages.CountUnreadBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count unread for %d threads: %w", len(ids), err)
	}
	return counts, nil
}

func (s *ChatService) liveChannel(ctx context.Context, id int64) (*model.Channel, error) {
	channel, err := s.channels.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find channel %d: %w", id, err)
	}
	if channel.IsDeleted {
		return nil, fmt.Errorf("channel %d is deleted: %w", id, apperrors.ErrNotFound)
	}
	return channel, nil
}

// GetOrCreateThread resolves the thread of a user on a channel. Only the call that actually
// inserted the thread joins the user to the roster and injects the welcome message; neither
// side effect can fail the call.
func (s *ChatService) GetOrCreateThread(ctx context.Context, req CreateThreadRequest) (*model.Thread, bool, error) {
	if err := validator.Validate(req); err != nil {
		return nil, false, err
	}
	if _, err := s.liveChannel(ctx, req.ChannelID); err != nil {
		return nil, false, err
	}

	actor := actorOrDefault(req.Actor)
	thread, created, err := s.threads.GetOrCreate(ctx, req.ChannelID, req.UserIdentifier, req.UserName, req.UserIP, actor)
	if err != nil {
		return nil, false, fmt.Errorf("get or create thread for %q on channel %d: %w", req.UserIdentifier, req.ChannelID, err)
	}
	if !created {
		return thread, false, nil
	}

	log := logger.FromContext(ctx).With(zap.Int64("thread_id", thread.ID), zap.Int64("channel_id", thread.ChannelID))
	log.Info("Thread created")
	if _, err := s.participants.Join(ctx, thread.ID, thread.UserIdentifier, model.RoleUser, actor, s.now()); err != nil {
		log.Warn("Failed to join thread owner to roster", zap.Error(err))
	}
	s.CreateWelcomeMessage(ctx, thread, actor)
	return thread, true, nil
}

// DeleteThread physically removes a thread together with its messages, roster and sessions.
func (s *ChatService) DeleteThread(ctx context.Context, threadID int64) error {
	if err := s.threads.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("delete thread %d: %w", threadID, err)
	}
	logger.FromContext(ctx).Info("Thread deleted", zap.Int64("thread_id", threadID))
	return nil
}

// JoinParticipant adds or re-activates a roster entry.
func (s *ChatService) JoinParticipant(ctx context.Context, threadID int64, req JoinRequest) (*model.Participant, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.threads.FindByID(ctx, threadID); err != nil {
		return nil, fmt.Errorf("find thread %d: %w", threadID, err)
	}
	p, err := s.participants.Join(ctx, threadID, req.UserIdentifier, req.Role, actorOrDefault(req.Actor), s.now())
	if err != nil {
		return nil, fmt.Errorf("join %q to thread %d: %w", req.UserIdentifier, threadID, err)
	}
	return p, nil
}

// LeaveParticipant stamps left_at on a roster entry.
func (s *ChatService) LeaveParticipant(ctx context.Context, threadID int64, identifier string) error {
	if err := s.participants.Leave(ctx, threadID, identifier, s.now()); err != nil {
		return fmt.Errorf("leave %q from thread %d: %w", identifier, threadID, err)
	}
	return nil
}

// ListParticipants returns the roster of a thread.
func (s *ChatService) ListParticipants(ctx context.Context, threadID int64) ([]model.Participant, error) {
	if _, err := s.threads.FindByID(ctx, threadID); err != nil {
		return nil, fmt.Errorf("find thread %d: %w", threadID, err)
	}
	return s.participants.List(ctx, threadID)
}

// StartSession logs a client connecting to a thread. An empty session id gets a random one.
func (s *ChatService) StartSession(ctx context.Context, threadID int64, sessionID string) (*model.SessionLog, error) {
	if _, err := s.threads.FindByID(ctx, threadID); err != nil {
		return nil, fmt.Errorf("find thread %d: %w", threadID, err)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log, err := s.sessions.Start(ctx, threadID, sessionID, s.now())
	if err != nil {
		return nil, fmt.Errorf("start session %s on thread %d: %w", sessionID, threadID, err)
	}
	return log, nil
}

// EndSession closes the latest open log of a session; ending twice is a no-op.
func (s *ChatService) EndSession(ctx context.Context, threadID int64, sessionID, reason string) (*model.SessionLog, error) {
	if err := validator.ValidateVar(sessionID, "notblank"); err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	log, err := s.sessions.End(ctx, threadID, sessionID, reason, s.now())
	if err != nil {
		return nil, fmt.Errorf("end session %s on thread %d: %w", sessionID, threadID, err)
	}
	return log, nil
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// EventType names an outbound broadcast.
type EventType string

const (
	EventMessageCreated EventType = "message.created"
	EventMessageUpdated EventType = "message.updated"
	EventMessageDeleted EventType = "message.deleted"
)

// Event is what subscribers of a thread or channel topic receive.
type Event struct {
	Type       EventType  `json:"type"`
	ID         int64      `json:"id"`
	ThreadID   int64      `json:"threadId"`
	ChannelID  int64      `json:"channelId,omitempty"`
	Deleted    bool       `json:"deleted,omitempty"`
	Message    MessageDTO `json:"message"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// NewEvent wraps a message DTO in a typed event.
func NewEvent(t EventType, dto MessageDTO, at time.Time) Event {
	return Event{
		Type:       t,
		ID:         dto.ID,
		ThreadID:   dto.ThreadID,
		ChannelID:  dto.ChannelID,
		Deleted:    t == EventMessageDeleted,
		Message:    dto,
		OccurredAt: at,
	}
}

// ThreadTopic is the topic every viewer of a conversation subscribes to.
func ThreadTopic(threadID int64) string {
	return fmt.Sprintf("chat/%d", threadID)
}

// ChannelTopic is the topic an admin dashboard for the whole channel subscribes to.
func ChannelTopic(channelID int64) string {
	return fmt.Sprintf("chat/channel/%d", channelID)
}

// TopicToSubject maps a slash topic onto a NATS subject under prefix:
// "chat/12" with prefix "chat" becomes "chat.12".
func TopicToSubject(prefix, topic string) string {
	rest := strings.TrimPrefix(topic, "chat/")
	return prefix + "." + strings.ReplaceAll(rest, "/", ".")
}

package model

import (
	"strconv"
	"strings"
	"time"
)

// FrameType is the kind of an inbound client frame delivered over NATS.
type FrameType string

const (
	FrameSendMessage  FrameType = "message.send"
	FrameMarkRead     FrameType = "message.read"
	FrameSessionStart FrameType = "session.start"
	FrameSessionEnd   FrameType = "session.end"
)

// InboundSubjectPrefix is the subject root of the inbound frame stream.
const InboundSubjectPrefix = "chat.inbound"

// InboundFrame is the JSON body of a frame published on chat.inbound.<threadId>.<type>.
type InboundFrame struct {
	Type       FrameType `json:"type"`
	ThreadID   int64     `json:"thread_id" validate:"required,gt=0"`
	SenderType string    `json:"sender_type,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Content    string    `json:"content,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// FrameMetadata is the delivery information of one inbound frame.
type FrameMetadata struct {
	MessageID      string
	Subject        string
	Stream         string
	Consumer       string
	StreamSequence uint64
	NumDelivered   uint64
	Timestamp      time.Time
}

// FrameTypeFromSubject derives the frame type from the subject suffix, e.g.
// "chat.inbound.12.message.send" -> FrameSendMessage.
func FrameTypeFromSubject(subject string) (FrameType, bool) {
	for _, ft := range []FrameType{FrameSendMessage, FrameMarkRead, FrameSessionStart, FrameSessionEnd} {
		if strings.HasSuffix(subject, "."+string(ft)) {
			return ft, true
		}
	}
	return "", false
}

// ThreadIDFromSubject reads the thread id segment of an inbound subject.
func ThreadIDFromSubject(subject string) (int64, bool) {
	rest, ok := strings.CutPrefix(subject, InboundSubjectPrefix+".")
	if !ok {
		return 0, false
	}
	segment, _, _ := strings.Cut(rest, ".")
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// InboundSubject builds the subject a client publishes a frame on.
func InboundSubject(threadID int64, frameType FrameType) string {
	return InboundSubjectPrefix + "." + strconv.FormatInt(threadID, 10) + "." + string(frameType)
}

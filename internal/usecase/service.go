package usecase

import (
	"context"
	"time"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/bizhours"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/filestore"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/storage"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

// SystemSenderName is the sender name stamped on welcome and auto-reply messages.
const SystemSenderName = "system"

// Gate is the business-hours collaborator.
type Gate interface {
	IsOpen(ctx context.Context, t time.Time) bool
	CurrentStatus(ctx context.Context) bizhours.Status
	ClosedMessage() string
}

// Broadcaster delivers events to live subscribers. It never reports failures.
type Broadcaster interface {
	Broadcast(ctx context.Context, event model.Event)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(context.Context, model.Event) {}

// Options tunes the injected system messages.
type Options struct {
	WelcomeEnabled bool
	WelcomeMessage string
}

// ChatService implements every chat operation shared by the HTTP API and the inbound NATS frames
type ChatService struct {
	channels     storage.ChannelRepo
	threads      storage.ThreadRepo
	messages     storage.MessageRepo
	participants storage.ParticipantRepo
	sessions     storage.SessionRepo
	settings     storage.SettingRepo
	gate         Gate
	broadcaster  Broadcaster
	throttle     AutoReplyThrottle
	files        filestore.Store
	opts         Options
	now          func() time.Time
}

// NewChatService creates a new chat service. A nil broadcaster or throttle falls back to a no-op.
func NewChatService(
	repos storage.Repositories,
	gate Gate,
	broadcaster Broadcaster,
	throttle AutoReplyThrottle,
	files filestore.Store,
	opts Options,
) *ChatService {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if throttle == nil {
		throttle = NoThrottle{}
	}
	return &ChatService{
		channels:     repos.Channels,
		threads:      repos.Threads,
		messages:     repos.Messages,
		participants: repos.Participants,
		sessions:     repos.Sessions,
		settings:     repos.Settings,
		gate:         gate,
		broadcaster:  broadcaster,
		throttle:     throttle,
		files:        files,
		opts:         opts,
		now:          utils.Now,
	}
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return model.DefaultActor
	}
	return actor
}

package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Fixture builders for tests. Each takes optional mutators applied after the fake defaults.

// FakeChannel returns a persisted-looking channel.
func FakeChannel(opts ...func(*Channel)) *Channel {
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := NewChannel(gofakeit.LetterN(6), gofakeit.Company(), DefaultActor, nil, now)
	c.ID = int64(gofakeit.Number(1, 1_000_000))
	for _, o := range opts {
		o(c)
	}
	return c
}

// FakeThread returns a thread belonging to channelID.
func FakeThread(channelID int64, opts ...func(*Thread)) *Thread {
	now := time.Now().UTC().Truncate(time.Microsecond)
	t := NewThread(channelID, gofakeit.UUID(), gofakeit.Name(), gofakeit.IPv4Address(), DefaultActor, now)
	t.ID = int64(gofakeit.Number(1, 1_000_000))
	for _, o := range opts {
		o(t)
	}
	return t
}

// FakeMessage returns an unread USER text message in threadID.
func FakeMessage(threadID int64, opts ...func(*Message)) *Message {
	now := time.Now().UTC().Truncate(time.Microsecond)
	m := NewMessage(threadID, SenderUser, gofakeit.Name(), MessageText, gofakeit.Sentence(6), nil, DefaultActor, now)
	m.ID = int64(gofakeit.Number(1, 1_000_000))
	for _, o := range opts {
		o(m)
	}
	return m
}

// FakeFrame returns an inbound frame of type ft for threadID. Send frames carry a random USER
// text; session frames a random session id.
func FakeFrame(threadID int64, ft FrameType) *InboundFrame {
	f := &InboundFrame{Type: ft, ThreadID: threadID, Actor: DefaultActor}
	switch ft {
	case FrameSendMessage:
		f.SenderType = SenderUser
		f.SenderName = gofakeit.Name()
		f.Content = gofakeit.Sentence(gofakeit.Number(3, 12))
	case FrameSessionStart, FrameSessionEnd:
		f.SessionID = gofakeit.UUID()
		if ft == FrameSessionEnd {
			f.Reason = "client_closed"
		}
	}
	return f
}

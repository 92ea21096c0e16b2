package utils

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func inboundStream() nats.StreamConfig {
	return nats.StreamConfig{
		Name:      "CHAT_INBOUND",
		Subjects:  []string{"chat.inbound.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
}

func TestStreamConfigEqual(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *nats.StreamConfig)
		expected bool
	}{
		{name: "identical", mutate: func(c *nats.StreamConfig) {}, expected: true},
		{name: "extra subject", mutate: func(c *nats.StreamConfig) { c.Subjects = append(c.Subjects, "chat.other") }, expected: false},
		{name: "different subject", mutate: func(c *nats.StreamConfig) { c.Subjects = []string{"chat.in.>"} }, expected: false},
		{name: "different name", mutate: func(c *nats.StreamConfig) { c.Name = "OTHER" }, expected: false},
		{name: "different retention", mutate: func(c *nats.StreamConfig) { c.Retention = nats.LimitsPolicy }, expected: false},
		{name: "different max age", mutate: func(c *nats.StreamConfig) { c.MaxAge = time.Hour }, expected: false},
		{name: "different storage", mutate: func(c *nats.StreamConfig) { c.Storage = nats.MemoryStorage }, expected: false},
		{name: "replicas ignored", mutate: func(c *nats.StreamConfig) { c.Replicas = 3 }, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := inboundStream()
			got := inboundStream()
			tt.mutate(&got)
			assert.Equal(t, tt.expected, StreamConfigEqual(got, want))
		})
	}
}

func TestConsumerConfigEqual(t *testing.T) {
	base := func() nats.ConsumerConfig {
		return nats.ConsumerConfig{
			Durable:        "chat-delivery",
			AckPolicy:      nats.AckExplicitPolicy,
			MaxDeliver:     5,
			DeliverGroup:   "chat-delivery",
			FilterSubjects: []string{"chat.inbound.message.send", "chat.inbound.message.read"},
		}
	}

	tests := []struct {
		name     string
		mutate   func(c *nats.ConsumerConfig)
		expected bool
	}{
		{name: "identical", mutate: func(c *nats.ConsumerConfig) {}, expected: true},
		{name: "different durable", mutate: func(c *nats.ConsumerConfig) { c.Durable = "other" }, expected: false},
		{name: "different ack policy", mutate: func(c *nats.ConsumerConfig) { c.AckPolicy = nats.AckAllPolicy }, expected: false},
		{name: "different max deliver", mutate: func(c *nats.ConsumerConfig) { c.MaxDeliver = 3 }, expected: false},
		{name: "different deliver group", mutate: func(c *nats.ConsumerConfig) { c.DeliverGroup = "" }, expected: false},
		{name: "fewer filter subjects", mutate: func(c *nats.ConsumerConfig) { c.FilterSubjects = c.FilterSubjects[:1] }, expected: false},
		{name: "single filter subject", mutate: func(c *nats.ConsumerConfig) { c.FilterSubject = "chat.inbound.>" }, expected: false},
		{name: "deliver subject ignored", mutate: func(c *nats.ConsumerConfig) { c.DeliverSubject = "_INBOX.x" }, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := base()
			got := base()
			tt.mutate(&got)
			assert.Equal(t, tt.expected, ConsumerConfigEqual(got, want))
		})
	}
}

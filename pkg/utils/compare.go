package utils

import (
	"github.com/nats-io/nats.go"
)

// StreamConfigEqual reports whether a stream already matches the wanted config.
// Only the fields the service sets are compared.
func StreamConfigEqual(a, b nats.StreamConfig) bool {
	return a.Name == b.Name &&
		a.Retention == b.Retention &&
		a.MaxAge == b.MaxAge &&
		a.Storage == b.Storage &&
		stringsEqual(a.Subjects, b.Subjects)
}

// ConsumerConfigEqual reports whether a durable consumer already matches the wanted config.
func ConsumerConfigEqual(a, b nats.ConsumerConfig) bool {
	return a.Durable == b.Durable &&
		a.AckPolicy == b.AckPolicy &&
		a.MaxDeliver == b.MaxDeliver &&
		a.DeliverGroup == b.DeliverGroup &&
		a.FilterSubject == b.FilterSubject &&
		stringsEqual(a.FilterSubjects, b.FilterSubjects)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

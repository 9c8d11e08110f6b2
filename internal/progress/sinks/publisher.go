package sinks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/jobsearch-aggregator/internal/progress"
)

// Publisher delivers one payload to a topic and returns the message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Message is the JSON shape published for each event.
type Message struct {
	SearchID   string  `json:"search_id"`
	TS         string  `json:"ts"`
	Stage      string  `json:"stage"`
	Portal     string  `json:"portal,omitempty"`
	Technique  string  `json:"technique,omitempty"`
	Outcome    string  `json:"outcome,omitempty"`
	Records    int     `json:"records"`
	Attempts   int     `json:"attempts,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// NewMessage converts evt to its published form.
func NewMessage(evt progress.Event) Message {
	return Message{
		SearchID:   evt.SearchUUID().String(),
		TS:         evt.TS.UTC().Format(time.RFC3339Nano),
		Stage:      string(evt.Stage),
		Portal:     evt.Portal,
		Technique:  evt.Technique,
		Outcome:    evt.Outcome,
		Records:    evt.Records,
		Attempts:   evt.Attempts,
		DurationMS: float64(evt.Dur) / float64(time.Millisecond),
		Note:       evt.Note,
	}
}

// PublisherSink forwards every event to a topic.
type PublisherSink struct {
	pub   Publisher
	topic string
}

// NewPublisherSink returns a sink publishing to topic.
func NewPublisherSink(pub Publisher, topic string) (*PublisherSink, error) {
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	return &PublisherSink{pub: pub, topic: topic}, nil
}

// Consume publishes each event, continuing past failures and returning them
// joined.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	var errs []error
	for _, evt := range batch {
		if _, err := s.pub.Publish(ctx, s.topic, NewMessage(evt)); err != nil {
			errs = append(errs, fmt.Errorf("publish %s event: %w", evt.Stage, err))
		}
	}
	return errors.Join(errs...)
}

// Close implements progress.Sink. The publisher's lifetime is owned by the
// caller.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}

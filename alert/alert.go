package alert

import (
	"context"
	"io"
	"strings"
	"sync"
)

// DefaultChannel is the monitoring channel watched for Datadog alerts.
const DefaultChannel = "servicecore-mobile-errors"

// DefaultMarkers are the textual patterns that identify a Datadog alert.
// A message carrying any one of them is attributed to Datadog.
var DefaultMarkers = []string{
	"Triggered:",
	"@issue.id:",
	"RUM errors",
	"@slack-ServiceCore",
}

// Source identifies the tool a message originated from.
type Source string

const (
	SourceDatadog Source = "datadog"
	SourceUnknown Source = "unknown"
)

// Message is one inbound message as delivered by the message source.
type Message struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// DetectSource classifies a message body by marker match.
// Matching is case-insensitive.
func DetectSource(text string, markers []string) Source {
	if ContainsMarker(text, markers) {
		return SourceDatadog
	}
	return SourceUnknown
}

// ContainsMarker reports whether text contains at least one of the given
// markers. Matching is case-insensitive; an empty marker never matches.
func ContainsMarker(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if m == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Feed supplies inbound messages, one per workflow run. Implementations
// wrap the delivery transport; the core never sees anything but Messages.
type Feed interface {
	// Next returns the next message. It returns io.EOF once the feed is
	// drained.
	Next(ctx context.Context) (Message, error)
}

// StaticFeed replays a fixed slice of messages. Useful for tests,
// examples, and evaluation runs.
type StaticFeed struct {
	mu       sync.Mutex
	messages []Message
	pos      int
}

// NewStaticFeed returns a feed over the given messages.
func NewStaticFeed(messages ...Message) *StaticFeed {
	return &StaticFeed{messages: messages}
}

// Next returns the next queued message or io.EOF when drained.
func (f *StaticFeed) Next(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.messages) {
		return Message{}, io.EOF
	}
	msg := f.messages[f.pos]
	f.pos++
	return msg, nil
}

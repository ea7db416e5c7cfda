package memory

import (
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso/flow"
	"github.com/curtisnewbie/miso/util/atom"
)

// ConversationState is the checkpoint of a conversation thread.
type ConversationState struct {
	Messages []*schema.Message `json:"messages"`

	// Context retains information derived from previous turns, e.g., the running summary of the conversation.
	Context map[string]any `json:"context"`

	UpdatedAt atom.Time `json:"updatedAt"`
}

func NewConversationState() ConversationState {
	return ConversationState{
		Messages: []*schema.Message{},
		Context:  map[string]any{},
	}
}

// Last message of the conversation, nil if there is none.
func (s ConversationState) LastMessage() *schema.Message {
	if len(s.Messages) < 1 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// CheckpointStore persists conversation state between turns.
type CheckpointStore interface {
	// Load state of the thread, ok is false if the thread has no checkpoint yet.
	Load(rail flow.Rail, threadID string) (state ConversationState, ok bool, err error)

	Save(rail flow.Rail, threadID string, state ConversationState) error
}

type checkpointConfig struct {
	capacity int
	ttl      time.Duration
}

type CheckpointOpFunc func(c *checkpointConfig)

// Max number of threads kept by in-memory checkpoint store, the least recently used thread is evicted first.
func WithCapacity(n int) CheckpointOpFunc {
	return func(c *checkpointConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// TTL of checkpoints in redis.
func WithTTL(ttl time.Duration) CheckpointOpFunc {
	return func(c *checkpointConfig) {
		c.ttl = ttl
	}
}

func newCheckpointConfig(ops ...CheckpointOpFunc) *checkpointConfig {
	c := &checkpointConfig{
		capacity: 1000,
		ttl:      time.Hour * 24 * 30,
	}
	for _, op := range ops {
		op(c)
	}
	return c
}

package ai

import (
	"context"
	"math/rand/v2"
	"sync"
)

var cannedReplies = [...]string{
	"Thank you for reaching out, let me check that for you.",
	"Could you please share your order number?",
	"I am sorry for the inconvenience, we are looking into it.",
	"Your request has been passed to the warehouse team.",
	"Is there anything else I can help you with?",
}

// Canned answers from a fixed catalog. It is the offline stand-in for OpenAIClient.
type Canned struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewCanned(rng *rand.Rand) *Canned {
	return &Canned{rng: rng}
}

func (c *Canned) GetReply(_ context.Context, _ []Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cannedReplies[c.rng.IntN(len(cannedReplies))], nil
}

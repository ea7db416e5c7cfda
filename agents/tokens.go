package agents

import (
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso/miso"
	"github.com/pkoukk/tiktoken-go"
)

const (
	approxCharsPerToken      = 4
	approxExtraTokensPerMsg  = 3
	tiktokenFallbackEncoding = "cl100k_base"
)

type TokenCounter interface {
	CountMessages(msgs []*schema.Message) int
}

type TokenCounterFunc func(msgs []*schema.Message) int

func (f TokenCounterFunc) CountMessages(msgs []*schema.Message) int {
	return f(msgs)
}

// Approximate token count, roughly 4 characters per token plus a fixed overhead per message.
func ApproxTokenCounter() TokenCounter {
	return TokenCounterFunc(CountTokensApprox)
}

func CountTokensApprox(msgs []*schema.Message) int {
	n := 0
	for _, m := range msgs {
		if m == nil {
			continue
		}
		chars := len(m.Content) + len(m.Role)
		for _, tc := range m.ToolCalls {
			chars += len(tc.Function.Name) + len(tc.Function.Arguments)
		}
		if m.ToolName != "" {
			chars += len(m.ToolName)
		}
		n += (chars+approxCharsPerToken-1)/approxCharsPerToken + approxExtraTokensPerMsg
	}
	return n
}

// tiktokenCounter loads the BPE ranks on first use since tiktoken-go downloads them when they are not cached locally.
//
// If the encoding can't be loaded, it falls back to [CountTokensApprox].
type tiktokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

func NewTiktokenCounter(model string) TokenCounter {
	return &tiktokenCounter{model: model}
}

func (t *tiktokenCounter) load() {
	t.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(t.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding(tiktokenFallbackEncoding)
		}
		if err != nil {
			miso.EmptyRail().Warnf("Failed to load tiktoken encoding for %v, using approximate token count, %v", t.model, err)
			return
		}
		t.enc = enc
	})
}

func (t *tiktokenCounter) CountMessages(msgs []*schema.Message) int {
	t.load()
	if t.enc == nil {
		return CountTokensApprox(msgs)
	}
	n := 0
	for _, m := range msgs {
		if m == nil {
			continue
		}
		n += approxExtraTokensPerMsg
		n += len(t.enc.Encode(m.Content, nil, nil))
		n += len(t.enc.Encode(string(m.Role), nil, nil))
		for _, tc := range m.ToolCalls {
			n += len(t.enc.Encode(tc.Function.Name, nil, nil))
			n += len(t.enc.Encode(tc.Function.Arguments, nil, nil))
		}
	}
	return n
}

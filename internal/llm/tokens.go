package llm

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// TokenCounter measures prompt size for logging and metrics.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	model string
	enc   *tiktoken.Tiktoken
}

// NewTokenCounter loads the tokenizer for model, falling back to cl100k_base
// for models tiktoken does not know (Gemini, fine-tunes). A counter whose
// encoding cannot be loaded always reports 0.
func NewTokenCounter(model string) TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msg("tokenizer unavailable, token counts disabled")
	}
	return &tiktokenCounter{model: model, enc: enc}
}

func (c *tiktokenCounter) Count(text string) int {
	if c.enc == nil {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

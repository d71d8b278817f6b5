package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncoding is the BPE used to estimate plan sizes. It is close enough
// across providers for reporting purposes.
const tokenEncoding = "cl100k_base"

var (
	encoder     *tiktoken.Tiktoken
	encoderOnce sync.Once
)

// CountTokens estimates the number of tokens in text.
//
// If the encoding cannot be loaded (for example, offline on first use) it
// falls back to a four-characters-per-token approximation.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}

	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tokenEncoding)
		if err == nil {
			encoder = enc
		}
	})

	if encoder == nil {
		return (len(text) + 3) / 4
	}
	return len(encoder.Encode(text, nil, nil))
}

package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding used for models tiktoken does not know, e.g. hosted llama models.
const fallbackEncoding = "cl100k_base"

var (
	encodingsMu sync.Mutex
	encodings   = map[string]*tiktoken.Tiktoken{}
)

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()
	if tke, ok := encodings[model]; ok {
		return tke, nil
	}
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	encodings[model] = tke
	return tke, nil
}

// estimateUsage approximates token counts when the backend did not report
// them. Returns a zero Usage if no encoding is available.
func estimateUsage(model string, turns []Turn, completion string) Usage {
	tke, err := encodingFor(model)
	if err != nil {
		return Usage{}
	}
	prompt := 0
	for _, t := range turns {
		prompt += len(tke.Encode(t.Content, nil, nil))
	}
	out := len(tke.Encode(completion, nil, nil))
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: out,
		TotalTokens:      prompt + out,
		Estimated:        true,
	}
}

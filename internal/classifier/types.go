package classifier

import (
	"encoding/json"

	"github.com/MikeSquared-Agency/stackoverfix/internal/llm"
)

// Libraries is the closed set of documentation sources the classifier may
// name.
var Libraries = []string{"Python", "Numpy", "Pandas", "PyTorch", "Scikit-Learn", "TensorFlow Keras"}

// MaxSearchPhraseWords bounds the search phrase length.
const MaxSearchPhraseWords = 8

// Request is the payload sent to the classification model.
type Request struct {
	UserPrompt  string          `json:"user_prompt"`
	CodeSnippet string          `json:"code_snippet"`
	StackTrace  json.RawMessage `json:"stack_trace"`
}

// Classification says whether the error needs library documentation, and if
// so which library and what to search for.
type Classification struct {
	DocReq       bool    `json:"DocReq"`
	Library      *string `json:"Library"`
	SearchPhrase *string `json:"SearchPhrase"`
}

var responseSchema = &llm.Schema{
	Type:     "object",
	Required: []string{"DocReq", "SearchPhrase", "Library"},
	Properties: map[string]*llm.Schema{
		"DocReq":       {Type: "boolean"},
		"SearchPhrase": {Type: "string", Nullable: true},
		"Library":      {Type: "string", Enum: Libraries, Nullable: true},
	},
}

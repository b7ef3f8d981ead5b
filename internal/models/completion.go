package models

// Prompt is a composed system/user message pair.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// PromptRequest carries a template and the caller supplied fields used to fill it.
type PromptRequest struct {
	SystemTemplate string
	UserMessage    string
	Subject        string
	Topic          string
	Context        string
	// SubjectLabel and ContextLabel head the lines appended to the system
	// template when Subject or Context is present.
	SubjectLabel string
	ContextLabel string
	// Vars holds extra named values referenced by the templates.
	Vars map[string]string
}

type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
	Model       string
	UseTools    bool
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the raw text returned by the completion API.
type Completion struct {
	Text  string `json:"text"`
	Usage *Usage `json:"usage,omitempty"`
}

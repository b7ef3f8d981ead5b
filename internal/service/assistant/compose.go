package assistant

import (
	"context"
	"fmt"
	"strings"

	"metutor/internal/models"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Compose fills the request templates. Caller text only ever enters as a
// variable value, so braces typed by a student reach the model unchanged.
func Compose(ctx context.Context, req models.PromptRequest) (models.Prompt, error) {
	system := req.SystemTemplate
	if system != "" {
		if present(req.Subject) && req.SubjectLabel != "" {
			system += "\n\n" + req.SubjectLabel + " {subject}"
		}
		if present(req.Context) && req.ContextLabel != "" {
			system += "\n\n" + req.ContextLabel + " {context}"
		}
	}

	vars := map[string]any{
		"subject": req.Subject,
		"topic":   req.Topic,
		"context": req.Context,
	}
	for k, v := range req.Vars {
		vars[k] = v
	}

	var templates []schema.MessagesTemplate
	if system != "" {
		templates = append(templates, schema.SystemMessage(system))
	}
	templates = append(templates, schema.UserMessage(req.UserMessage))

	msgs, err := prompt.FromMessages(schema.FString, templates...).Format(ctx, vars)
	if err != nil {
		return models.Prompt{}, fmt.Errorf("compose prompt: %w", err)
	}

	var out models.Prompt
	for _, msg := range msgs {
		switch msg.Role {
		case schema.System:
			out.System = msg.Content
		case schema.User:
			out.User = msg.Content
		}
	}
	return out, nil
}

// optionalLine renders "LABEL value" when value is present and nothing otherwise.
func optionalLine(label, value string) string {
	if !present(value) {
		return ""
	}
	return label + " " + value
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

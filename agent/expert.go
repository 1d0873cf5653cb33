package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// Expert represent a chat with a model configured for one task.
type Expert struct {
	Name      string                       `json:"name"`
	ModelName string                       `json:"model_name"`
	Config    *genai.GenerateContentConfig `json:"config"`
	Library   Library
	Log       zerolog.Logger
	chat      *genai.Chat
}

// Start opens the chat session.
func (e *Expert) Start(ctx context.Context, client *genai.Client) error {
	chat, err := client.Chats.Create(ctx, e.ModelName, e.Config, nil)
	if err != nil {
		return fmt.Errorf("cannot start %s chat: %w", e.Name, err)
	}
	e.chat = chat
	return nil
}

// Ask sends parts to the model and answers its function calls until it
// replies with text.
func (e *Expert) Ask(ctx context.Context, parts ...*genai.Part) (string, error) {
	if e.chat == nil {
		return "", fmt.Errorf("expert %s is not started", e.Name)
	}
	resp, err := e.chat.Send(ctx, parts...)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from expert %s", e.Name)
	}

	var answers []*genai.Part
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			if e.Library == nil {
				return "", fmt.Errorf("expert %s doesn't know how to make function calls", e.Name)
			}
			e.Log.Debug().Str("function", part.FunctionCall.Name).Interface("args", part.FunctionCall.Args).Msg("function call")
			answers = append(answers, &genai.Part{FunctionResponse: e.Library(ctx, part.FunctionCall)})
		case part.Text != "":
			text.WriteString(part.Text)
		}
	}
	if len(answers) > 0 {
		// Ask again with the responses it asked for until we have a real response.
		return e.Ask(ctx, answers...)
	}
	return text.String(), nil
}

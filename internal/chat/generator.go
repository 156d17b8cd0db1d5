package chat

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/georgiosbirmpakos/derbychat/internal/conversation"
)

// GenkitGenerator is the production Generator backed by a genkit model.
type GenkitGenerator struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
}

// NewGenkitGenerator creates a Generator calling the given provider-qualified
// model (e.g. "openai/gpt-4o-mini").
func NewGenkitGenerator(g *genkit.Genkit, modelName string, temperature float32) *GenkitGenerator {
	return &GenkitGenerator{
		g:           g,
		modelName:   modelName,
		temperature: temperature,
	}
}

// Generate performs a single model call. Prior turns are replayed as
// alternating user/model messages so the model sees the conversation; error
// turns replay their recorded message like any other.
func (gg *GenkitGenerator) Generate(ctx context.Context, system string, history []conversation.Turn, question string) (string, error) {
	var messages []*ai.Message
	for _, t := range history {
		messages = append(messages,
			ai.NewUserMessage(ai.NewTextPart(t.Question)),
			ai.NewModelMessage(ai.NewTextPart(t.Answer)),
		)
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))

	response, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.modelName),
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithConfig(map[string]any{"temperature": gg.temperature}),
	)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	return response.Text(), nil
}

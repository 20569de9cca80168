// Package describe writes a short product description with an OpenAI chat
// model for rows that reach the catalog without one.
package describe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"preorderimport/internal/model"
)

const maxDescriptionRunes = 1200

var ErrEmptyCompletion = errors.New("model returned no description")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Writer struct {
	client chatCompleter
	model  string
}

func New(apiKey string) *Writer {
	return &Writer{client: openai.NewClient(apiKey), model: openai.GPT4oMini}
}

func NewWithClient(client chatCompleter, model string) *Writer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Writer{client: client, model: model}
}

func SystemPrompt() string {
	return `
Sei un copywriter di un negozio online che vende prodotti in preordine.
Scrivi una descrizione del prodotto in italiano, 2-4 frasi, tono informativo.
Usa SOLO i dati forniti. Non inventare caratteristiche tecniche, prezzi o date.
Rispondi con il solo testo della descrizione, senza titoli, elenchi o markdown.
`
}

// Describe returns a plain-text description for p built from its known fields.
func (w *Writer) Describe(ctx context.Context, p model.EnrichedProduct) (string, error) {
	resp, err := w.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: w.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt()},
				{Role: openai.ChatMessageRoleUser, Content: productFacts(p)},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", p.SKU, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	if r := []rune(text); len(r) > maxDescriptionRunes {
		text = strings.TrimSpace(string(r[:maxDescriptionRunes]))
	}
	slog.Debug("description generated", "sku", p.SKU, "chars", len(text), "tokens", resp.Usage.TotalTokens)
	return text, nil
}

func productFacts(p model.EnrichedProduct) string {
	var sb strings.Builder
	line := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, v)
		}
	}
	line("Nome", p.Name)
	line("Marca", p.Brand)
	line("Categoria", p.Category)
	line("Tipo articolo", p.ArticleType)
	if p.Weight.Valid {
		line("Peso (kg)", p.Weight.Decimal.String())
	}
	if p.IsPreorder {
		line("Preordine", "sì")
		line("Scadenza preordine", p.PreorderDeadline)
		line("Disponibilità prevista", p.ETA)
	}
	line("Pagina produttore", p.SourceURL)
	return sb.String()
}

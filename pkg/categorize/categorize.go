// Package categorize maps transaction descriptions to category names
// using an injected text-completion capability. The whole package is
// best-effort: a missing capability, a dead call or a malformed response
// all degrade to an empty mapping and never fail an import.
package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/finbook-app/finbook/pkg/models"
)

// Completer is a minimal text-completion capability. Implementations
// may fail or be entirely absent at runtime.
type Completer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// maxBatch bounds the number of distinct descriptions sent in a single
// completion request.
const maxBatch = 50

// Enricher asks a Completer to assign category names to descriptions.
type Enricher struct {
	logger *log.Logger
}

func NewEnricher(logger *log.Logger) *Enricher {
	return &Enricher{logger: logger}
}

// Suggest returns a description → category-name mapping. Existing
// categories are offered to the model first; it may also suggest new
// names. On any failure the result is an empty map.
func (e *Enricher) Suggest(ctx context.Context, completer Completer, descriptions []string, existing []models.Category) map[string]string {
	if completer == nil || len(descriptions) == 0 {
		return nil
	}
	if len(descriptions) > maxBatch {
		descriptions = descriptions[:maxBatch]
	}

	raw, err := completer.Generate(ctx, buildPrompt(descriptions, existing))
	if err != nil {
		e.logger.Debug("categorization call failed", "error", err)
		return nil
	}

	mapping, err := parseMapping(raw)
	if err != nil {
		e.logger.Debug("categorization response unusable", "error", err)
		return nil
	}
	return mapping
}

func buildPrompt(descriptions []string, existing []models.Category) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Assign a category name to each bank transaction description below.\n\n")

	if len(existing) > 0 {
		b.WriteString("Prefer one of the user's existing categories:\n")
		for _, c := range existing {
			fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Kind)
		}
		b.WriteString("Only invent a new category name when none of the existing ones fit.\n\n")
	} else {
		b.WriteString("The user has no categories yet; suggest short, reusable category names.\n\n")
	}

	b.WriteString("Descriptions:\n")
	for _, d := range descriptions {
		fmt.Fprintf(&b, "- %s\n", d)
	}

	b.WriteString("\nReturn ONLY a valid raw JSON object mapping each description verbatim to a category name.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT add any text outside the JSON object.\n")
	return b.String()
}

// parseMapping parses the model output as a strict string-to-string JSON
// object. A Markdown code fence around the object is tolerated and
// stripped; anything else that fails to unmarshal is rejected.
func parseMapping(raw string) (map[string]string, error) {
	clean := stripFences(raw)

	var mapping map[string]string
	if err := json.Unmarshal([]byte(clean), &mapping); err != nil {
		return nil, fmt.Errorf("unmarshal mapping: %w", err)
	}

	for k, v := range mapping {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			delete(mapping, k)
		}
	}
	return mapping, nil
}

// stripFences removes a surrounding ```/```json fence if the model
// ignored the no-Markdown instruction.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

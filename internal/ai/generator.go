// Package ai produces example sentences for vocabulary entries.
package ai

import (
	"context"
	"fmt"
	"strings"
)

// Generator writes one example sentence for a term in the sense given by
// definition.
type Generator interface {
	Complete(ctx context.Context, term, definition string) (string, error)
}

// MaxExampleWords bounds the length of a generated sentence
const MaxExampleWords = 15

const systemPrompt = "You help Japanese speakers learn English vocabulary. Answer with a single sentence and nothing else."

// Prompt builds the request for one example sentence
func Prompt(term, definition string) string {
	return fmt.Sprintf(
		"Write one natural English sentence of at most %d words that uses %q with the meaning %q. Reply with the sentence only.",
		MaxExampleWords, term, definition,
	)
}

// ExampleOrNone returns a sentence from g, or "" when g is nil or fails.
func ExampleOrNone(ctx context.Context, g Generator, term, definition string) string {
	if g == nil {
		return ""
	}
	sentence, err := g.Complete(ctx, term, definition)
	if err != nil {
		return ""
	}
	return sentence
}

// clean strips whitespace and wrapping quotes models like to add
func clean(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	for _, q := range []string{`"`, "“", "'"} {
		closing := q
		if q == "“" {
			closing = "”"
		}
		if len(s) >= len(q)+len(closing) && strings.HasPrefix(s, q) && strings.HasSuffix(s, closing) {
			s = strings.TrimSpace(s[len(q) : len(s)-len(closing)])
		}
	}
	return s
}

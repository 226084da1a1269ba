package classify

import (
	"context"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"

	"github.com/mnemo-ai/mnemo/internal"
	"github.com/mnemo-ai/mnemo/pkg/models"
)

var log = internal.GetLogger()

const DefaultClassifyTimeout = 5 * time.Second

// Classifier decides whether a query references prior conversation, what
// kind of retrieval it calls for, and which scope of history to search.
// Classify never fails: guard rules run first, then the LLM backend, and
// any backend failure is recovered via deterministic pattern rules.
type Classifier struct {
	llm           models.LLM
	timeoutPolicy timeout.Timeout[string]
	callTimeout   time.Duration
}

// NewClassifier creates a Classifier backed by the given LLM. A nil llm
// disables the primary path; classification then always uses the pattern
// fallback. A non-positive callTimeout uses DefaultClassifyTimeout.
func NewClassifier(llm models.LLM, callTimeout time.Duration) *Classifier {
	if callTimeout <= 0 {
		callTimeout = DefaultClassifyTimeout
	}
	return &Classifier{
		llm:           llm,
		timeoutPolicy: timeout.With[string](callTimeout),
		callTimeout:   callTimeout,
	}
}

// Classify returns a best-effort classification of the query.
// currentSessionID seeds the current-session scope and may be empty.
func (c *Classifier) Classify(
	ctx context.Context,
	query string,
	currentSessionID string,
) models.Classification {
	normalized := strings.ToLower(strings.TrimSpace(query))

	if rule := applyGuards(normalized); rule != "" {
		log.Debugf("classification short-circuited by guard rule %q", rule)
		return models.Classification{
			IsConversational: false,
			Type:             models.QueryTypeGeneral,
			Scope:            models.CrossSessionScope(),
		}
	}

	cls, err := c.classifyLLM(ctx, query, currentSessionID)
	if err != nil {
		log.Debugf("classifier backend unavailable, using pattern fallback: %v", err)
		cls = fallbackClassify(normalized, currentSessionID)
	}

	if cls.IsConversational {
		cls.Type, cls.Position = deriveQueryType(normalized)
	}

	return cls
}

func (c *Classifier) classifyLLM(
	ctx context.Context,
	query string,
	currentSessionID string,
) (models.Classification, error) {
	if c.llm == nil {
		return models.Classification{}, models.NewClassifierError("no backend configured", nil)
	}

	prompt, err := internal.ParsePrompt(
		classifyPromptTemplate,
		ClassifyPromptTemplateData{Query: query},
	)
	if err != nil {
		return models.Classification{}, models.NewClassifierError("prompt template", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	raw, err := failsafe.Get(func() (string, error) {
		return c.llm.Call(callCtx, prompt)
	}, c.timeoutPolicy)
	if err != nil {
		return models.Classification{}, models.NewClassifierError("backend call failed", err)
	}

	return parseVerdict(raw, currentSessionID)
}

// parseVerdict parses the fixed two-token grammar
// {CONVERSATIONAL|GENERAL} {CURRENT_SESSION|CROSS_SESSION}. Parsing is
// strict: anything else fails this path (not the whole call).
func parseVerdict(raw, currentSessionID string) (models.Classification, error) {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(raw)))
	if len(fields) != 2 {
		return models.Classification{}, models.NewClassifierError("malformed verdict: "+raw, nil)
	}

	var conversational bool
	switch fields[0] {
	case "CONVERSATIONAL":
		conversational = true
	case "GENERAL":
		conversational = false
	default:
		return models.Classification{}, models.NewClassifierError("malformed verdict: "+raw, nil)
	}

	var scope models.Scope
	switch fields[1] {
	case "CURRENT_SESSION":
		scope = models.CurrentSessionScope(currentSessionID)
	case "CROSS_SESSION":
		scope = models.CrossSessionScope()
	default:
		return models.Classification{}, models.NewClassifierError("malformed verdict: "+raw, nil)
	}

	return models.Classification{
		IsConversational: conversational,
		Type:             models.QueryTypeGeneral,
		Scope:            scope,
	}, nil
}

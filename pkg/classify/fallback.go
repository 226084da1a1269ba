package classify

import (
	"regexp"

	"github.com/mnemo-ai/mnemo/pkg/models"
)

// Deterministic fallback classification, used when the LLM backend is
// unavailable, times out, or returns a malformed verdict.

var (
	chatMetaRe = regexp.MustCompile(
		`\b(this|our|the)\s+(conversation|chat|session|discussion)\b|` +
			`\bwe\s+(talked|discussed|covered|went over)\b`,
	)
	pronounSpeechRe = regexp.MustCompile(
		`\b(i|you|we)\b.*\b(say|said|tell|told|ask|asked|mention|mentioned|discuss|discussed|talk|talked)\b`,
	)
	messageRefRe = regexp.MustCompile(
		`\b(messages?|msgs?)\b|\bmessages?\s+(ago|back)\b`,
	)
	crossSessionCueRe = regexp.MustCompile(
		`\bhave\s+we\s+ever\b|\bdid\s+we\s+(ever|previously)\b|` +
			`\b(previous|past|earlier|other|any)\s+(conversations?|chats?|sessions?)\b|` +
			`\ball\s+(of\s+)?our\s+(conversations?|chats?)\b`,
	)
)

// fallbackClassify marks a query conversational when it carries chat-meta
// references, pronoun+speech-verb pairs, ordering words, or explicit message
// references. Scope defaults to the current session unless cross-session cue
// words are present.
func fallbackClassify(query, currentSessionID string) models.Classification {
	conversational := chatMetaRe.MatchString(query) ||
		pronounSpeechRe.MatchString(query) ||
		messageRefRe.MatchString(query) ||
		(orderingWordRe.MatchString(query) && messageCueRe.MatchString(query))

	if !conversational {
		return models.Classification{
			IsConversational: false,
			Type:             models.QueryTypeGeneral,
			Scope:            models.CrossSessionScope(),
		}
	}

	scope := models.CurrentSessionScope(currentSessionID)
	if crossSessionCueRe.MatchString(query) {
		scope = models.CrossSessionScope()
	}

	return models.Classification{
		IsConversational: true,
		Type:             models.QueryTypeGeneral,
		Scope:            scope,
	}
}

package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mnemo-ai/mnemo/pkg/models"
)

// guardRule is a named predicate evaluated before any classifier backend is
// consulted. Rules are ordered; the first match short-circuits the query to
// a general (non-conversational) classification.
type guardRule struct {
	name    string
	matches func(query string) bool
}

var (
	negationRe = regexp.MustCompile(`\b(don't|dont|do not|never|not)\b`)

	orderingWordRe = regexp.MustCompile(`\b(first|last|earliest|latest|oldest|newest)\b`)

	// Generic historical-entity nouns. "Who was the first emperor of Rome?"
	// is trivia, not a chat-history lookup.
	historyEntityRe = regexp.MustCompile(
		`\b(emperor|empress|king|queen|president|pharaoh|pope|dynasty|war|battle|` +
			`revolution|album|song|movie|film|novel|book|country|nation|planet|element|` +
			`olympics|championship|invention)\b`,
	)
)

// guardRules run top-down; each is independently unit-testable via applyGuards.
var guardRules = []guardRule{
	{
		name: "negation",
		matches: func(query string) bool {
			return negationRe.MatchString(query)
		},
	},
	{
		name: "history_trap",
		matches: func(query string) bool {
			return orderingWordRe.MatchString(query) && historyEntityRe.MatchString(query)
		},
	},
}

// applyGuards returns the name of the first matching guard rule, or "".
func applyGuards(query string) string {
	for _, rule := range guardRules {
		if rule.matches(query) {
			return rule.name
		}
	}
	return ""
}

var (
	overviewRe = regexp.MustCompile(`\b(summary|summarize|summarise|overview|recap)\b`)
	topicalRe  = regexp.MustCompile(`\b(about|topic|discussed|discuss|talked|mention|mentioned)\b`)
)

// deriveQueryType inspects the structure of a conversational query to decide
// which retrieval flavor serves it.
func deriveQueryType(query string) (models.QueryType, *models.PositionRef) {
	if pos := ParsePosition(query); pos != nil {
		return models.QueryTypePositional, pos
	}
	if overviewRe.MatchString(query) {
		return models.QueryTypeOverview, nil
	}
	if topicalRe.MatchString(query) {
		return models.QueryTypeTopical, nil
	}
	return models.QueryTypeGeneral, nil
}

var (
	justSaidRe   = regexp.MustCompile(`\bjust\s+(said|say|asked|ask|told|tell|mentioned|mention|wrote|write|typed|type)\b`)
	selfRefRe    = regexp.MustCompile(`\b(i|my)\b`)
	agoRe        = regexp.MustCompile(`\b(\d+|one|two|three|four|five|six|seven|eight|nine|ten|a couple(?: of)?|a few|several)\s+(messages?|msgs?)\s+(ago|back|before|earlier)\b`)
	ordinalRe    = regexp.MustCompile(`\b(\d+)(?:st|nd|rd|th)\s+(message|thing|question)\b`)
	ordWordRe    = regexp.MustCompile(`\b(second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\s+(message|thing|question)\b`)
	firstPosRe   = regexp.MustCompile(`\bfirst\s+(message|thing|question)\b|\b(beginning|start)\s+of\b`)
	lastPosRe    = regexp.MustCompile(`\b(last|latest|most recent|previous)\s+(message|thing|question)\b`)
	bareOrderRe  = regexp.MustCompile(`\b(first|last|earliest|latest)\b`)
	lastWordRe   = regexp.MustCompile(`\b(last|latest)\b`)
	messageCueRe = regexp.MustCompile(`\b(message|messages|msg|msgs|said|say|asked|told)\b`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"a couple": 2, "a couple of": 2, "a few": 3, "several": 4,
}

var ordinalWords = map[string]int{
	"second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// ParsePosition resolves positional phrasing ("first message", "3 messages
// ago", "what did I just say") into a PositionRef. Returns nil when the
// query carries no positional reference. Fuzzy counts resolve to fixed
// offsets: a couple=2, a few=3, several=4.
func ParsePosition(query string) *models.PositionRef {
	if justSaidRe.MatchString(query) {
		return &models.PositionRef{
			Kind:          models.PositionLast,
			Index:         1,
			SelfReference: selfRefRe.MatchString(query),
		}
	}

	if m := agoRe.FindStringSubmatch(query); m != nil {
		n := parseCount(m[1])
		if n > 0 {
			return &models.PositionRef{
				Kind:          models.PositionAgo,
				Index:         n,
				SelfReference: selfRefRe.MatchString(query),
			}
		}
	}

	if m := ordinalRe.FindStringSubmatch(query); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return &models.PositionRef{Kind: models.PositionNth, Index: n}
		}
	}
	if m := ordWordRe.FindStringSubmatch(query); m != nil {
		return &models.PositionRef{Kind: models.PositionNth, Index: ordinalWords[m[1]]}
	}

	if firstPosRe.MatchString(query) {
		return &models.PositionRef{Kind: models.PositionFirst, Index: 1}
	}
	if lastPosRe.MatchString(query) {
		return &models.PositionRef{
			Kind:          models.PositionLast,
			Index:         1,
			SelfReference: selfRefRe.MatchString(query),
		}
	}

	// Bare ordering words alongside message cues are treated as
	// chronological intent on the whole conversation.
	if bareOrderRe.MatchString(query) && messageCueRe.MatchString(query) {
		kind := models.PositionFirst
		if lastWordRe.MatchString(query) {
			kind = models.PositionLast
		}
		return &models.PositionRef{Kind: kind, Index: 1}
	}

	return nil
}

func parseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if n, ok := numberWords[raw]; ok {
		return n
	}
	return 0
}

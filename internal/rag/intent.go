package rag

import "strings"

// Intent is the classified purpose of a chat message. Each intent selects a
// specialized instruction block in the system prompt.
type Intent string

const (
	IntentSearch        Intent = "search"
	IntentSummarize     Intent = "summarize"
	IntentExplain       Intent = "explain"
	IntentFollowup      Intent = "followup"
	IntentGenerateNotes Intent = "generate_notes"
	IntentGenerateCode  Intent = "generate_code"
	IntentGeneral       Intent = "general"
)

type intentRule struct {
	intent       Intent
	keywords     []string
	needsHistory bool
}

// intentRules is evaluated top to bottom; the first rule with a matching
// keyword wins, so the slice order IS the priority order.
var intentRules = []intentRule{
	{intent: IntentSummarize, keywords: []string{
		"summarize", "summary", "overview", "brief", "key points", "main ideas", "tldr",
	}},
	{intent: IntentExplain, keywords: []string{
		"explain", "clarify", "what does", "what is", "how does", "why",
		"elaborate", "different way", "simpler", "more detail",
	}},
	{intent: IntentSearch, keywords: []string{
		"find", "search", "look for", "where is", "show me", "list", "what are",
	}},
	{intent: IntentGenerateNotes, keywords: []string{
		"generate notes", "create notes", "study notes", "learning notes",
		"make notes", "write notes", "reading notes",
	}},
	{intent: IntentGenerateCode, keywords: []string{
		"generate code", "create code", "write code", "code example",
		"show code", "implement", "programming example",
	}},
	{intent: IntentFollowup, needsHistory: true, keywords: []string{
		"this", "that", "it", "those", "these", "above", "previous", "same", "more about",
	}},
}

// Classify maps a message to an intent by case-insensitive substring match.
// Followup only applies when the conversation already has history; anything
// unmatched is general.
func Classify(message string, hasHistory bool) Intent {
	lower := strings.ToLower(message)
	for _, rule := range intentRules {
		if rule.needsHistory && !hasHistory {
			continue
		}
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent
			}
		}
	}
	return IntentGeneral
}

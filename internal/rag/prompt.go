package rag

import (
	"fmt"
	"strings"

	"github.com/coursepilot/backend/internal/model"
)

// RefusalAnswer is the exact string returned whenever grounding retrieval
// comes back empty; the system prompt instructs the model to emit the same
// phrasing when the context does not contain the answer.
const RefusalAnswer = "I couldn't find this information in the uploaded course materials. Would you like me to search for something else, or would you like to try rephrasing your question?"

var intentInstructions = map[Intent]string{
	IntentSearch: `You are helping the user FIND specific information in course materials.
List relevant topics, files, and page numbers where this information can be found.
Be direct and organized with your search results.`,

	IntentSummarize: `You are helping the user get a SUMMARY of course content.
Provide a concise, well-structured summary with key points.
Use bullet points for clarity. Always cite the source materials.`,

	IntentExplain: `You are helping the user UNDERSTAND a concept better.
Explain clearly using simple language and examples where helpful.
If you're re-explaining something, try a different approach or analogy.`,

	IntentFollowup: `The user is asking a FOLLOW-UP question about the previous topic.
Build on the conversation context to provide a relevant answer.
Reference back to what was discussed before.`,

	IntentGenerateNotes: `You are GENERATING comprehensive study notes based on course materials.

OUTPUT FORMAT (use this exact Markdown structure):
# Study Notes: [Topic Name]

## Overview
Brief 2-3 sentence introduction to the topic.

## Key Concepts
- **Concept 1**: Explanation
- **Concept 2**: Explanation
- **Concept 3**: Explanation

## Detailed Explanation
In-depth coverage of the topic with examples.

## Important Formulas/Definitions
List any formulas, theorems, or key definitions.

## Practice Questions
1. Question 1?
2. Question 2?

## Summary
3-4 sentence recap of the most important points.

## Sources
- List all sources used with page numbers

IMPORTANT: Make the notes comprehensive, well-organized, and ready to study from.`,

	IntentGenerateCode: `You are GENERATING code examples based on course materials.

OUTPUT FORMAT (use this exact Markdown structure):
# Code Example: [Topic Name]

## Concept Overview
Brief explanation of what this code demonstrates.

## Code Implementation

` + "```python" + `
# Add clear comments explaining each section
# Use Python unless specified otherwise

def example_function():
    '''Docstring explaining purpose'''
    pass  # Implement based on course content
` + "```" + `

## Code Explanation
Step-by-step breakdown of how the code works.

## Usage Example
` + "```python" + `
# Show how to use the code
` + "```" + `

## Common Mistakes to Avoid
- Mistake 1 and how to fix it
- Mistake 2 and how to fix it

## Related Concepts
Links to other topics this connects to.

## Sources
- List all sources used with page numbers

IMPORTANT: Code must be syntactically correct, well-commented, and educational.
Supported languages: Python (default), JavaScript, Java, C++.`,

	IntentGeneral: `You are an AI tutor helping the user learn from course materials.
Provide helpful, accurate responses based on the available content.`,
}

// IntentInstruction returns the instruction block for an intent, defaulting
// to the general tutor block.
func IntentInstruction(intent Intent) string {
	if text, ok := intentInstructions[intent]; ok {
		return text
	}
	return intentInstructions[IntentGeneral]
}

// BuildSystemPrompt splices the intent instructions with the grounding rules
// every chat answer must obey.
func BuildSystemPrompt(intent Intent) string {
	return IntentInstruction(intent) + `

=== CRITICAL RULES (YOU MUST FOLLOW) ===

1. ONLY USE PROVIDED CONTEXT: You may ONLY answer using information from the [Course Materials] section below.
   Do NOT use any external knowledge or make up information.

2. SAY "I DON'T KNOW": If the answer is NOT in the provided course materials, you MUST say:
   "` + RefusalAnswer + `"

3. CITE YOUR SOURCES: For EVERY piece of information you provide, include a citation in this EXACT format:
   (Source: [filename], Page [number])

   Example: "Machine learning uses algorithms to learn from data (Source: ML_Introduction.pdf, Page 12)."

4. FORMAT CITATIONS AT END: Also provide a "Sources Used" section at the end listing all referenced materials.

5. BE ACADEMICALLY RELIABLE: Only state facts that are directly supported by the course materials.
   If information is partial or unclear in the materials, say so.

=== END OF RULES ===`
}

// BuildAskContext renders retrieved chunks as a numbered, source-labeled
// context block for the single-shot ask prompt.
func BuildAskContext(chunks []model.ChunkResult) string {
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		label := fmt.Sprintf("[Source %d: %s", i+1, c.FileName)
		if c.PageNumber != nil {
			label += fmt.Sprintf(", Page %d", *c.PageNumber)
		}
		label += "]"
		parts = append(parts, label+"\n"+c.ChunkText)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// BuildAskPrompt is the stateless question-answering prompt.
func BuildAskPrompt(context, question string) string {
	return fmt.Sprintf(`Answer using ONLY the provided context. Cite sources with [Source X].

CONTEXT:
%s

QUESTION: %s

ANSWER:`, context, question)
}

// BuildMaterialsContext renders citations as the [Course Materials] section
// of a chat prompt. An empty source list renders an explicit no-results
// line so the grounding rules still apply.
func BuildMaterialsContext(sources []model.SourceCitation) string {
	if len(sources) == 0 {
		return "No relevant course materials found for this query."
	}
	parts := make([]string, 0, len(sources))
	for i, src := range sources {
		pageInfo := ""
		if src.PageNumber != nil {
			pageInfo = fmt.Sprintf(", Page %d", *src.PageNumber)
		}
		parts = append(parts, fmt.Sprintf("--- Source %d: %s%s ---\n%s", i+1, src.FileName, pageInfo, src.Excerpt))
	}
	return strings.Join(parts, "\n\n")
}

// BuildChatPrompt assembles the full prompt for one chat turn.
func BuildChatPrompt(systemPrompt, conversationContext, courseMaterials, userMessage string) string {
	if conversationContext == "" {
		conversationContext = "This is the start of the conversation."
	}
	return fmt.Sprintf(`%s

[Conversation Context]
%s

[Course Materials]
%s

[User's Question]
%s

[Your Response (remember to cite sources)]:`, systemPrompt, conversationContext, courseMaterials, userMessage)
}

// BuildSummaryPrompt asks for a 2-3 sentence rolling summary combining the
// previous summary with the most recent messages.
func BuildSummaryPrompt(existingSummary, messagesText string) string {
	if existingSummary == "" {
		existingSummary = "None"
	}
	return fmt.Sprintf(`Summarize this conversation in 2-3 sentences. Focus on: topics discussed, questions asked, and key information shared.

Previous Summary: %s

Recent Messages:
%s

Concise Summary:`, existingSummary, messagesText)
}

// BuildTitlePrompt derives a short conversation title from the opening
// message, truncated to its first 150 runes.
func BuildTitlePrompt(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) > 150 {
		firstMessage = string(runes[:150])
	}
	return fmt.Sprintf("Generate a short title (max 5 words) for a conversation starting with: '%s'\n\nTitle:", firstMessage)
}

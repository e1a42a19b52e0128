package llm

import (
	"fmt"
	"sort"
	"strings"
)

// extractionSystemMessage instructs the model to emit strict JSON. The
// confidence floor and count caps stated here are re-enforced by the policy
// layer; the prompt just reduces wasted tokens.
const extractionSystemMessage = `You analyze business documents and conversations for a staffing company's organization knowledge base.

Extract concrete, reusable facts about the organization: what it does, who it serves, how it operates, its brand voice, compliance needs, hiring patterns, and operational bottlenecks.

Respond with a single JSON object:
{
  "field_mappings": [
    {"field": "<knowledge base field name>", "insight": "<the fact>", "confidence": <0-100>, "action": "REPLACE" | "APPEND" | "NEW_INSIGHT", "reasoning": "<one sentence>"}
  ],
  "new_insights": [
    {"insight": "<fact that fits no listed field>", "category": "<topic tag>", "confidence": <0-100>}
  ]
}

Rules:
- Map to the listed field names only; anything else goes in new_insights.
- Use REPLACE when the new fact supersedes the current value, APPEND when it adds to it.
- At most 15 field_mappings and 10 new_insights.
- Discard anything you would score below 50.
- Output JSON only, no prose.`

// buildExtractionPrompt renders the content and current field snapshot into
// the user prompt.
func buildExtractionPrompt(content string, currentFields map[string]string) string {
	var b strings.Builder

	b.WriteString("Current knowledge base fields:\n")
	if len(currentFields) == 0 {
		b.WriteString("(none set)\n")
	} else {
		// Sort for prompt stability across runs.
		names := make([]string, 0, len(currentFields))
		for name := range currentFields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value := currentFields[name]
			if value == "" {
				value = "(empty)"
			}
			fmt.Fprintf(&b, "- %s: %s\n", name, value)
		}
	}

	b.WriteString("\nContent to analyze:\n")
	b.WriteString(content)

	return b.String()
}

// parseExtractionResponse extracts and unmarshals the JSON payload from a raw
// model response.
func parseExtractionResponse(response string) (*ExtractionResult, error) {
	result, err := ParseJSONResponse[ExtractionResult](response)
	if err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	return &result, nil
}

package gemini

import (
	"encoding/json"
	"strings"
)

// CompatibilityAnalysis is the structured result of a compatibility check.
// All scores are 1-10.
type CompatibilityAnalysis struct {
	CompatibilityScore      int      `json:"compatibility_score"`
	ColorHarmony            int      `json:"color_harmony"`
	StyleCoherence          int      `json:"style_coherence"`
	OccasionAppropriateness int      `json:"occasion_appropriateness"`
	OverallAssessment       string   `json:"overall_assessment"`
	Strengths               []string `json:"strengths"`
	AreasForImprovement     []string `json:"areas_for_improvement"`
}

// parseCompatibilityResponse extracts the JSON object between the first '{'
// and the last '}'. Models often wrap the object in prose or code fences;
// anything outside the braces is ignored. When no valid object is found the
// result degrades to neutral 7s carrying the raw text.
func parseCompatibilityResponse(response string) CompatibilityAnalysis {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		var analysis CompatibilityAnalysis
		if err := json.Unmarshal([]byte(response[start:end+1]), &analysis); err == nil {
			return analysis
		}
	}

	assessment := response
	if len(assessment) > 200 {
		assessment = assessment[:200] + "..."
	}
	return CompatibilityAnalysis{
		CompatibilityScore:      7,
		ColorHarmony:            7,
		StyleCoherence:          7,
		OccasionAppropriateness: 7,
		OverallAssessment:       assessment,
		Strengths:               []string{"AI analysis available"},
		AreasForImprovement:     []string{"See full response for details"},
	}
}

// parseSuggestionsResponse pulls numbered and bulleted lines out of the
// response, stripping the list markers. A response with no recognizable
// list collapses to a single suggestion holding the whole text.
func parseSuggestionsResponse(response string) []string {
	var suggestions []string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := rune(line[0])
		if (first >= '0' && first <= '9') || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
			suggestion := strings.TrimLeft(line, "0123456789.-• ")
			if suggestion != "" {
				suggestions = append(suggestions, suggestion)
			}
		}
	}
	if len(suggestions) == 0 {
		return []string{response}
	}
	return suggestions
}

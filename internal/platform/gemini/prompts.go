package gemini

import (
	"fmt"
	"strings"
)

// ItemInfo is the prompt-facing summary of a clothing item. Callers map
// their own models into this shape; the gateway never touches the database.
type ItemInfo struct {
	Name        string
	Category    string
	Brand       string
	Size        string
	Description string
	Colors      []string
}

// UserContext carries optional occasion/weather/style hints into prompts.
type UserContext map[string]string

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func buildTryOnPrompt(items []ItemInfo, userContext UserContext) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s: %s, %s, %s, size %s",
			orDefault(item.Name, "Unknown item"),
			orDefault(item.Category, "unknown category"),
			orDefault(item.Brand, "no brand"),
			strings.Join(item.Colors, ", "),
			orDefault(item.Size, "unknown"),
		))
	}

	contextInfo := ""
	if occasion := userContext["occasion"]; occasion != "" {
		contextInfo += "\nOccasion: " + occasion
	}
	if weather := userContext["weather"]; weather != "" {
		contextInfo += "\nWeather: " + weather
	}

	return fmt.Sprintf(`You are a fashion stylist AI. Describe how the following clothing items would look together as an outfit, focusing on style, color coordination, and overall aesthetic.

Clothing items:
%s
%s

Provide a concise but detailed description of:
1. How the colors and patterns work together
2. The overall style and vibe of the outfit
3. What occasions this outfit would be suitable for
4. Any styling tips or considerations

Keep the response engaging and helpful, around 100-150 words.`, strings.Join(lines, "\n"), contextInfo)
}

func buildCompatibilityPrompt(items []ItemInfo) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s: %s, %s, %s",
			orDefault(item.Name, "Unknown item"),
			orDefault(item.Category, "unknown category"),
			strings.Join(item.Colors, ", "),
			item.Description,
		))
	}

	return fmt.Sprintf(`Analyze the compatibility of these clothing items as an outfit. Rate the compatibility on a scale of 1-10 and explain why.

Clothing items:
%s

Please respond in the following JSON format:
{
    "compatibility_score": <1-10>,
    "color_harmony": <1-10>,
    "style_coherence": <1-10>,
    "occasion_appropriateness": <1-10>,
    "overall_assessment": "<brief explanation>",
    "strengths": ["<strength1>", "<strength2>"],
    "areas_for_improvement": ["<improvement1>", "<improvement2>"]
}`, strings.Join(lines, "\n"))
}

func buildImprovementPrompt(items []ItemInfo, occasion, weather string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s: %s",
			orDefault(item.Name, "Unknown item"),
			orDefault(item.Category, "unknown category"),
		))
	}

	context := ""
	if occasion != "" {
		context += "\nOccasion: " + occasion
	}
	if weather != "" {
		context += "\nWeather: " + weather
	}

	return fmt.Sprintf(`Suggest 3-5 specific improvements for this outfit:

Current outfit:
%s
%s

Provide practical suggestions such as:
- Adding accessories
- Changing colors or patterns
- Adjusting fit or proportions
- Substituting items for better coordination

Format as a numbered list of specific, actionable suggestions.`, strings.Join(lines, "\n"), context)
}

func buildImageTryOnPrompt(items []ItemInfo) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, orDefault(item.Name, "item"))
	}

	return fmt.Sprintf(`Looking at this person, describe how they would look wearing: %s.

Consider:
- How the colors complement their appearance
- The fit and proportions on their body type
- The overall style and how it suits them
- Any styling suggestions specific to them

Provide an encouraging and detailed description of how great they would look in this outfit.`, strings.Join(names, ", "))
}

func buildImageGenerationPrompt(items []ItemInfo, userContext UserContext) string {
	descriptions := make([]string, 0, len(items))
	for _, item := range items {
		desc := orDefault(item.Name, "clothing item")
		if len(item.Colors) > 0 {
			desc += " in " + strings.Join(item.Colors, ", ")
		}
		if item.Category != "" {
			desc += fmt.Sprintf(" (%s)", item.Category)
		}
		descriptions = append(descriptions, desc)
	}

	contextInfo := ""
	if occasion := userContext["occasion"]; occasion != "" {
		contextInfo += " for " + occasion
	}
	if weather := userContext["weather"]; weather != "" {
		contextInfo += " in " + weather + " weather"
	}
	if style := userContext["style"]; style != "" {
		contextInfo += " with " + style + " styling"
	}

	return fmt.Sprintf(`Generate a realistic photograph showing a person wearing this complete outfit: %s%s.

Requirements:
- Show the person wearing ALL the specified clothing items together
- Use realistic lighting and photography style
- Display the outfit clearly and accurately
- Show how the colors and pieces work together
- Create a natural, appealing composition
- Focus on how the complete outfit looks when worn

Style: Professional fashion photography, natural lighting, clear details of the clothing items.`, strings.Join(descriptions, ", "), contextInfo)
}

package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/becoming/becoming/internal/core"
	"github.com/becoming/becoming/internal/logging"
)

// Fallback is returned whenever the collaborator cannot produce text.
const Fallback = "Notice one small way you showed up as the person you're becoming today."

// maxRecentWins bounds how much history goes into the prompt.
const maxRecentWins = 5

// tones maps each personality to its system-prompt voice.
var tones = map[core.Personality]string{
	core.PersonalityWiseFriend: "You are a wise, warm friend. Speak plainly and kindly, like someone who has known the user for years and sees who they are becoming.",
	core.PersonalityMuse:       "You are a playful muse. Speak with imagery and delight; find the spark in small moments.",
	core.PersonalityAnchor:     "You are a steady anchor. Speak calmly and briefly; ground the user in what is already solid.",
	core.PersonalityPioneer:    "You are a bold pioneer. Speak with energy and forward motion; frame progress as territory claimed.",
}

// systemPrompt returns the tone profile for a personality, defaulting to the
// wise friend for anything unrecognized.
func systemPrompt(p core.Personality) string {
	if tone, ok := tones[p]; ok {
		return tone
	}
	return tones[core.PersonalityWiseFriend]
}

// buildPrompt assembles the short structured prompt: current intention plus a
// recent-history excerpt.
func buildPrompt(state *core.UserState) string {
	var b strings.Builder

	b.WriteString("In two or three sentences, offer the user one reflective insight about their progress. No lists, no preamble.\n")

	if state.CurrentFocusCycle != nil {
		fmt.Fprintf(&b, "\nThis week they are practicing being: %s\n", state.CurrentFocusCycle.Intention)
		if len(state.CurrentFocusCycle.Practices) > 0 {
			fmt.Fprintf(&b, "Committed practices: %s\n", strings.Join(state.CurrentFocusCycle.Practices, "; "))
		}
	}

	if len(state.Wins) > 0 {
		b.WriteString("\nRecent wins they recorded:\n")
		for i, win := range state.Wins {
			if i >= maxRecentWins {
				break
			}
			fmt.Fprintf(&b, "- %s\n", win.Text)
		}
	}

	return b.String()
}

// Generate produces one insight line for the current state. It never returns
// an error: an unconfigured key, transport failure, or empty completion all
// degrade to the fixed fallback.
func (c *Client) Generate(ctx context.Context, state *core.UserState) string {
	if !c.IsConfigured() {
		return Fallback
	}

	text, err := c.complete(ctx, systemPrompt(state.ActivePersonality), buildPrompt(state))
	if err != nil {
		logging.Warn("insight generation failed: %v", err)
		return Fallback
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback
	}
	return text
}

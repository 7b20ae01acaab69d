package feedback

import (
	"fmt"
	"strings"

	"github.com/pitchlabs/pitchcoach/internal/models"
)

const systemPrompt = `You are an experienced communications coach reviewing the transcript of a practice sales conversation. The "user" lines are the trainee; the other lines are a simulated counterpart.

Give direct, specific feedback addressed to the trainee:
1. Start with two or three things they did well, quoting short phrases from the transcript.
2. Then cover the most important things to improve, each with a concrete example of what to say instead.
3. If an evaluation rubric is provided, assess the trainee against each criterion in order.
Keep the tone supportive but honest. Do not invent things that are not in the transcript.`

// BuildUserPrompt composes the user message for one generation: the raw
// transcript plus whatever scenario context is available. A nil scenario
// degrades to the transcript alone.
func BuildUserPrompt(transcript *models.Transcript, scenario *models.Scenario) string {
	var builder strings.Builder

	builder.WriteString("Here is the conversation transcript:\n\n")
	builder.WriteString(strings.TrimSpace(transcript.Content))

	if scenario != nil {
		if instructions := strings.TrimSpace(scenario.Instructions); instructions != "" {
			builder.WriteString("\n\nScenario context:\n")
			builder.WriteString(instructions)
		}
		if len(scenario.Rubric) > 0 {
			builder.WriteString("\n\nEvaluation rubric:\n")
			for i, criterion := range scenario.Rubric {
				builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, criterion))
			}
		}
	}

	return builder.String()
}

package feedback

import (
	"strings"
	"testing"

	"github.com/pitchlabs/pitchcoach/internal/models"
)

func TestBuildUserPrompt(t *testing.T) {
	transcript := &models.Transcript{Content: "User: hi\nProspect: who is this?"}
	scenario := &models.Scenario{
		Instructions: "The user is cold-calling you.",
		Rubric:       []string{"Opens with a clear reason", "Secures a next step"},
	}

	prompt := BuildUserPrompt(transcript, scenario)

	if !strings.Contains(prompt, transcript.Content) {
		t.Fatal("prompt must contain the transcript")
	}
	if !strings.Contains(prompt, "Scenario context:") || !strings.Contains(prompt, scenario.Instructions) {
		t.Fatal("prompt must contain the scenario instructions")
	}
	if !strings.Contains(prompt, "1. Opens with a clear reason") || !strings.Contains(prompt, "2. Secures a next step") {
		t.Fatalf("prompt must number the rubric criteria:\n%s", prompt)
	}
}

func TestBuildUserPromptWithoutScenario(t *testing.T) {
	prompt := BuildUserPrompt(&models.Transcript{Content: "User: hello"}, nil)

	if !strings.Contains(prompt, "User: hello") {
		t.Fatal("prompt must contain the transcript")
	}
	if strings.Contains(prompt, "Scenario context:") || strings.Contains(prompt, "Evaluation rubric:") {
		t.Fatal("prompt must not mention scenario sections without a scenario")
	}
}

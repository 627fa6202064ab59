package refine

import (
	"fmt"
	"strconv"
)

// WriterInstruction is the fixed system prompt for the first draft.
const WriterInstruction = `You are a children's author. Write the first draft of a short story (around 100-150 words) for the requested topic and reader age.
Use simple vocabulary suited to the age, a clear beginning, middle and end, and a gentle lesson where it fits.
Output only the story text, with no title, introduction or explanation.`

// CriticInstruction is the fixed system prompt for reviewing a draft.
const CriticInstruction = `You are a constructive story critic for children's books. Review the story the user provides.
Evaluate plot, characters, pacing and age-appropriateness.
- If the story is well written and complete, respond with the exact word: APPROVED
- Otherwise, give 2-3 specific, actionable suggestions for improvement and nothing else.`

// RefinerInstruction is the fixed system prompt for rewriting a draft.
const RefinerInstruction = `You are a story refiner. Rewrite the story draft so it fully incorporates the critique.
Keep the length around 100-150 words and keep it suitable for the same reader age.
Output only the revised story text, with no title, introduction or explanation.`

func writerPrompt(topic string, age float64) string {
	return fmt.Sprintf("Topic: %s\nReader age: %s years", topic, formatAge(age))
}

func criticPrompt(draft string) string {
	return "Story:\n" + draft
}

func refinerPrompt(draft, feedback string) string {
	return fmt.Sprintf("Story draft:\n%s\n\nCritique:\n%s", draft, feedback)
}

func formatAge(age float64) string {
	return strconv.FormatFloat(age, 'f', -1, 64)
}

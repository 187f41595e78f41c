package agent

import "strings"

// greetings is the fixed phrase set that routes a question to the direct
// path: small talk never needs document context.
var greetings = []string{
	"bom dia",
	"boa tarde",
	"boa noite",
	"olá",
	"oi",
	"saudações",
}

// IsGreeting reports whether the question is small talk. The match is a
// case-insensitive substring test against the enumerated phrase set.
func IsGreeting(question string) bool {
	q := strings.ToLower(question)
	for _, greeting := range greetings {
		if strings.Contains(q, greeting) {
			return true
		}
	}
	return false
}

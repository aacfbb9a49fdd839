package host

import "math/rand"

// quotes shown on the intervention overlay, one at random per trigger.
var quotes = []string{
	"Protect capital first.",
	"Return only when deliberate.",
	"Discipline is quiet.",
	"Detach from outcome. Execute process.",
	"One good trade is enough.",
	"The market will be here tomorrow.",
	"Process over profit.",
	"Emotion is data, not directive.",
	"Pause is power.",
	"Preserve to perform.",
}

func randomQuote() string {
	return quotes[rand.Intn(len(quotes))]
}

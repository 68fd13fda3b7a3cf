// Package quotes holds the canned motivational quote pool.
package quotes

import "math/rand/v2"

var pool = []string{
	"The only way to do great work is to love what you do. — Steve Jobs",
	"Don't watch the clock; do what it does. Keep going. — Sam Levenson",
	"Believe you can and you're halfway there. — Theodore Roosevelt",
	"Start where you are. Use what you have. Do what you can. — Arthur Ashe",
	"Do something today that your future self will thank you for.",
	"Small progress is still progress. Keep going.",
	"Difficult roads often lead to beautiful destinations.",
	"You are capable of amazing things.",
	"Mistakes are proof that you are trying.",
	"Focus on progress, not perfection.",
}

// Random returns one quote from the pool.
func Random() string {
	return pool[rand.IntN(len(pool))]
}

// Morning formats the daily broadcast message around a quote.
func Morning(quote string) string {
	return "Good morning! 🌞\n\n" + quote + "\n\nHave a great day! 💪"
}

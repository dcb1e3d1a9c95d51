package utility

import (
	"fmt"
	"math/rand"
)

// RandomColorHex returns a display color, avoiding near-black and
// near-white extremes so it stays visible on any background.
func RandomColorHex() string {
	r := rand.Intn(248) + 4
	g := rand.Intn(248) + 4
	b := rand.Intn(248) + 4
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

var adjectives = []string{
	"Rapid", "Sideways", "Flatout", "Boxing", "Slipstream", "Apex",
	"Midfield", "Podium", "Chicane", "Turbo", "Gravel", "Drafting",
}

var nouns = []string{
	"Rookie", "Backmarker", "Wingman", "Mechanic", "Strategist",
	"Paddock", "Steward", "Lollipop", "Gantry", "Marshal",
}

// RandomRacerName generates a display name for anonymous players,
// e.g. "Apex Rookie 4821".
func RandomRacerName() string {
	return fmt.Sprintf("%s %s %04d",
		adjectives[rand.Intn(len(adjectives))],
		nouns[rand.Intn(len(nouns))],
		rand.Intn(10000))
}

package dreamscape

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dream"
)

// Styles is the style catalog offered when an app does not configure its own.
var Styles = []string{
	"Surrealism",
	"Ghibli-inspired",
	"Cyberpunk",
	"Art Nouveau",
	"Ukiyo-e",
	"Film noir",
	"Vaporwave",
	"Solarpunk",
}

// ExampleDreams are the prompts behind the "Example" and "Surprise me" actions.
var ExampleDreams = []string{
	"I'm walking through a city where all the buildings are made of glass. A fox keeps appearing in reflections, guiding me to a rooftop garden.",
	"I'm floating in a library where books hum like beehives. A storm gathers outside but the pages glow with warm light.",
	"I'm on a train that dives into the ocean. Jellyfish illuminate the cabin while I search for a lost photograph.",
	"In a moonlit forest, doors hang from tree branches. Each door opens to a childhood memory. One is locked and I can't find the key.",
}

type seedDream struct {
	text   string
	style  string
	aspect dream.AspectRatio
	likes  int
	age    time.Duration
}

var seedDreams = []seedDream{
	{"Flying over a calm turquoise sea at dawn, the waves singing softly below.", "Ghibli-inspired", dream.AspectLandscape, 24, 72 * time.Hour},
	{"A neon city melts into rain while someone chases me through endless alleys.", "Cyberpunk", dream.AspectPortrait, 17, 48 * time.Hour},
	{"A giant owl carries me to a forest of glowing mushrooms where cats read poetry.", "Art Nouveau", dream.AspectSquare, 31, 30 * time.Hour},
	{"My old school hallway stretches forever and every classroom holds a door to the sky.", "Surrealism", dream.AspectLandscape, 9, 20 * time.Hour},
	{"Mountains of paper cranes rise from a river under a crimson moon.", "Ukiyo-e", dream.AspectPortrait, 12, 8 * time.Hour},
	{"A dark detective office, smoke curling, and a telephone that only rings in reverse.", "Film noir", dream.AspectSquare, 5, 2 * time.Hour},
}

// SeedGallery fills g with sample public dreams. Mood and category come from
// the classifier, so filters behave the same as for shared dreams.
func SeedGallery(g *dream.Gallery) {
	now := time.Now().UTC()
	for i, s := range seedDreams {
		e := g.Add(dream.PublicDreamEntry{
			DreamText:   s.text,
			ImageURL:    stockImageURL(s.style, s.text, s.aspect, i+1),
			Style:       s.style,
			Mood:        dream.ClassifyMood(s.text),
			Category:    dream.ClassifyCategory(s.text),
			AspectRatio: s.aspect,
			CreatedAt:   now.Add(-s.age),
		})
		for n := 0; n < s.likes; n++ {
			g.Like(e.ID)
		}
	}
}

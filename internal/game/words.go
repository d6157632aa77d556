package game

import "math/rand"

// PromptCard is one drawable word with its category and difficulty.
type PromptCard struct {
	Word       string `json:"word"`
	Category   string `json:"category"`
	Difficulty int    `json:"difficulty"` // 1 easy .. 3 hard
}

var promptBank = []PromptCard{
	{"cat", "animals", 1},
	{"dog", "animals", 1},
	{"fish", "animals", 1},
	{"elephant", "animals", 2},
	{"penguin", "animals", 2},
	{"octopus", "animals", 2},
	{"chameleon", "animals", 3},
	{"platypus", "animals", 3},

	{"apple", "food", 1},
	{"pizza", "food", 1},
	{"banana", "food", 1},
	{"hamburger", "food", 2},
	{"spaghetti", "food", 2},
	{"croissant", "food", 3},
	{"sushi", "food", 2},

	{"house", "objects", 1},
	{"chair", "objects", 1},
	{"umbrella", "objects", 1},
	{"telescope", "objects", 2},
	{"lighthouse", "objects", 2},
	{"typewriter", "objects", 3},
	{"hourglass", "objects", 3},
	{"anchor", "objects", 2},

	{"sun", "nature", 1},
	{"tree", "nature", 1},
	{"rainbow", "nature", 1},
	{"volcano", "nature", 2},
	{"waterfall", "nature", 2},
	{"tornado", "nature", 3},
	{"glacier", "nature", 3},

	{"guitar", "music", 1},
	{"drum", "music", 1},
	{"trumpet", "music", 2},
	{"accordion", "music", 3},
	{"violin", "music", 2},

	{"robot", "fiction", 1},
	{"dragon", "fiction", 2},
	{"wizard", "fiction", 2},
	{"mermaid", "fiction", 2},
	{"spaceship", "fiction", 2},
	{"werewolf", "fiction", 3},

	{"dancing", "actions", 2},
	{"swimming", "actions", 2},
	{"sneezing", "actions", 3},
	{"juggling", "actions", 3},
	{"yawning", "actions", 3},

	{"doctor", "jobs", 1},
	{"firefighter", "jobs", 2},
	{"astronaut", "jobs", 2},
	{"archaeologist", "jobs", 3},
}

// promptPicker hands out prompts uniformly at random without repeating a
// word until the whole bank has been used, then starts over.
type promptPicker struct {
	rng  *rand.Rand
	used map[string]bool
}

func newPromptPicker(rng *rand.Rand) *promptPicker {
	return &promptPicker{rng: rng, used: make(map[string]bool)}
}

func (pp *promptPicker) pick() PromptCard {
	candidates := make([]PromptCard, 0, len(promptBank))
	for _, c := range promptBank {
		if !pp.used[c.Word] {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		pp.used = make(map[string]bool)
		candidates = append(candidates, promptBank...)
	}
	card := candidates[pp.rng.Intn(len(candidates))]
	pp.used[card.Word] = true
	return card
}

package signaling

import (
	"crypto/rand"
	"log/slog"
	"math/big"
	"strings"
)

// roomIDWords is the number of words in a generated room identifier.
const roomIDWords = 4

// generateRoomID creates a memorable room ID such as
// "kitten-waffle-stardust-happy", drawing each word from a different list.
// IDs for which taken reports true are rejected and regenerated.
func generateRoomID(taken func(string) bool) string {
	pools := [][]string{animals, snacks, genres, scenery, adjectives, extras}

	for {
		words := make([]string, 0, roomIDWords)
		for _, list := range pickLists(pools, roomIDWords) {
			words = append(words, list[randomIndex(len(list))])
		}

		id := strings.Join(words, "-")
		if taken == nil || !taken(id) {
			return id
		}
	}
}

// pickLists returns n distinct lists from pools in random order.
func pickLists(pools [][]string, n int) [][]string {
	shuffled := append([][]string(nil), pools...)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := randomIndex(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:n]
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		slog.Error("random source failed", "error", err)
		panic(err)
	}
	return int(n.Int64())
}

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"duckling", "fawn", "lamb", "raccoon", "beaver", "seahorse", "dolphin", "narwhal", "penguin", "flamingo",
	"pelican", "sparrow", "robin", "toucan", "parrot", "owl", "lynx", "badger", "heron", "walrus",
}

var snacks = []string{
	"popcorn", "nachos", "pretzel", "licorice", "toffee", "waffle", "pancake", "mochi", "churro", "donut",
	"cookie", "brownie", "muffin", "taco", "dumpling", "noodle", "samosa", "falafel", "crepe", "fudge",
	"gummy", "caramel", "sorbet", "macaron", "truffle", "biscuit", "cupcake", "nugget", "crumb", "jelly",
}

var genres = []string{
	"western", "noir", "musical", "thriller", "comedy", "drama", "anime", "docu", "horror", "romance",
	"heist", "sitcom", "slapstick", "mystery", "fantasy", "cartoon", "epic", "satire", "serial", "indie",
	"matinee", "sequel", "prequel", "remake", "trailer", "montage", "cameo", "encore", "premiere", "finale",
}

var scenery = []string{
	"sunbeam", "stardust", "meadow", "willow", "ember", "breeze", "harbor", "canyon", "ridge", "lagoon",
	"glacier", "orchard", "prairie", "tundra", "dune", "grotto", "summit", "valley", "island", "comet",
	"nebula", "orbit", "rocket", "lantern", "puddle", "pebble", "cottage", "lighthouse", "river", "aurora",
}

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "bright", "gentle", "brave", "calm", "swift",
	"silent", "noisy", "bouncy", "fuzzy", "plucky", "merry", "peppy", "dreamy", "lucky", "breezy",
}

var extras = []string{
	"dragon", "unicorn", "griffin", "phoenix", "fairy", "gnome", "sprite", "pixie", "mermaid", "elf",
	"wizard", "knight", "pirate", "robot", "ninja", "cowboy", "detective", "astronaut", "jester", "bard",
	"director", "usher", "critic", "stuntman", "projector", "reel", "spotlight", "ticket", "curtain", "clapper",
}

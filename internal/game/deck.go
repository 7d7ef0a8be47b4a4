package game

import (
	"math/rand"

	"spectrum/internal/model"
)

// Spectrum card tables, one ordered list per theme. Card text is pure data
// looked up by index; the order within a theme must never change, since the
// seeded shuffle permutes indices, not cards.

type theme struct {
	name  string
	cards []model.Card
}

// ThemeInfo is the public listing entry for a theme.
type ThemeInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var themeOrder = []string{"popculture", "food", "work", "sports", "feelings", "daily"}

var themes = map[string]theme{
	"popculture": {
		name: "Pop Culture",
		cards: []model.Card{
			{Left: "Bad actor", Right: "Great actor"},
			{Left: "Bad music", Right: "Great music"},
			{Left: "Underrated", Right: "Overrated"},
			{Left: "Beloved", Right: "Hated"},
			{Left: "Unknown", Right: "Famous"},
			{Left: "Fantasy", Right: "Sci-fi"},
			{Left: "Comedy", Right: "Drama"},
			{Left: "Sad movie", Right: "Happy movie"},
			{Left: "Villain", Right: "Hero"},
			{Left: "Underpaid", Right: "Overpaid"},
			{Left: "Mainstream", Right: "Niche"},
			{Left: "Guilty pleasure", Right: "Critically acclaimed"},
			{Left: "One-hit wonder", Right: "Timeless classic"},
			{Left: "Box office flop", Right: "Blockbuster"},
		},
	},
	"food": {
		name: "Food & Drink",
		cards: []model.Card{
			{Left: "Bland", Right: "Spicy"},
			{Left: "Snack", Right: "Meal"},
			{Left: "Unhealthy", Right: "Healthy"},
			{Left: "Cheap eats", Right: "Fine dining"},
			{Left: "Overcooked", Right: "Raw"},
			{Left: "Breakfast food", Right: "Dinner food"},
			{Left: "Sweet", Right: "Savory"},
			{Left: "Acquired taste", Right: "Crowd pleaser"},
			{Left: "Street food", Right: "Restaurant food"},
			{Left: "Guilty pleasure", Right: "Superfood"},
			{Left: "Best eaten cold", Right: "Best eaten hot"},
			{Left: "Topping", Right: "Base"},
			{Left: "Forgettable", Right: "Unforgettable"},
			{Left: "Everyday drink", Right: "Special occasion drink"},
		},
	},
	"work": {
		name: "Work & Career",
		cards: []model.Card{
			{Left: "Boring job", Right: "Exciting job"},
			{Left: "Underpaid", Right: "Overpaid"},
			{Left: "Hard skill", Right: "Soft skill"},
			{Left: "Useless meeting", Right: "Essential meeting"},
			{Left: "Entry level", Right: "Executive"},
			{Left: "Work to live", Right: "Live to work"},
			{Left: "Stressful", Right: "Relaxed"},
			{Left: "Teamwork", Right: "Solo work"},
			{Left: "Replaceable", Right: "Irreplaceable"},
			{Left: "Bad perk", Right: "Great perk"},
			{Left: "Early bird", Right: "Night owl"},
			{Left: "Job", Right: "Calling"},
		},
	},
	"sports": {
		name: "Sports & Fitness",
		cards: []model.Card{
			{Left: "Worst athlete ever", Right: "Greatest athlete of all time"},
			{Left: "Individual sport", Right: "Team sport"},
			{Left: "Low effort", Right: "Exhausting"},
			{Left: "Skill", Right: "Luck"},
			{Left: "Boring to watch", Right: "Thrilling to watch"},
			{Left: "Amateur", Right: "Professional"},
			{Left: "Safe", Right: "Dangerous"},
			{Left: "Indoor sport", Right: "Outdoor sport"},
			{Left: "Underdog", Right: "Favorite"},
			{Left: "Warm-up", Right: "Workout"},
			{Left: "Casual fan", Right: "Superfan"},
			{Left: "Slow sport", Right: "Fast sport"},
		},
	},
	"feelings": {
		name: "Feelings & Behavior",
		cards: []model.Card{
			{Left: "Introvert", Right: "Extrovert"},
			{Left: "Guilty pleasure", Right: "Openly proud"},
			{Left: "Rational", Right: "Emotional"},
			{Left: "Pessimist", Right: "Optimist"},
			{Left: "Forgivable", Right: "Unforgivable"},
			{Left: "Normal", Right: "Weird"},
			{Left: "Relaxing", Right: "Stressful"},
			{Left: "Honest", Right: "Tactful"},
			{Left: "Habit", Right: "Addiction"},
			{Left: "Small talk", Right: "Deep conversation"},
			{Left: "Embarrassing", Right: "Impressive"},
			{Left: "Selfish", Right: "Selfless"},
		},
	},
	"daily": {
		name: "Daily Life",
		cards: []model.Card{
			{Left: "Morning person", Right: "Evening person"},
			{Left: "Chore", Right: "Hobby"},
			{Left: "Essential", Right: "Luxury"},
			{Left: "Overpacked", Right: "Underpacked"},
			{Left: "Too early", Right: "Too late"},
			{Left: "Minimalist", Right: "Hoarder"},
			{Left: "Quiet neighborhood", Right: "Busy city"},
			{Left: "Planned", Right: "Spontaneous"},
			{Left: "Cheap", Right: "Expensive"},
			{Left: "Temporary fix", Right: "Permanent solution"},
			{Left: "Underrated invention", Right: "Overrated invention"},
			{Left: "Waste of time", Right: "Time well spent"},
		},
	},
}

const seedAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewDeckSeed returns a short random seed string fixing a room's deck order.
func NewDeckSeed() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = seedAlphabet[rand.Intn(len(seedAlphabet))]
	}
	return string(b)
}

// SeedValue reduces a deck seed to the numeric LCG seed: the sum of its
// character codes.
func SeedValue(seed string) int {
	total := 0
	for i := 0; i < len(seed); i++ {
		total += int(seed[i])
	}
	return total
}

// Themes lists the available themes in a fixed order.
func Themes() []ThemeInfo {
	list := make([]ThemeInfo, 0, len(themeOrder))
	for _, id := range themeOrder {
		list = append(list, ThemeInfo{ID: id, Name: themes[id].name})
	}
	return list
}

// CardAt returns the card for a round, derived purely from the theme, the deck
// index and the numeric seed, so every caller computes the same card without
// the deck ever being transmitted or stored.
//
// The permutation is a Fisher-Yates shuffle driven by the LCG
// state = (state*9301 + 49297) mod 233280; these constants and the high-to-low
// iteration order are a compatibility contract and must not change.
func CardAt(themeID string, index, seed int) model.Card {
	t, ok := themes[themeID]
	if !ok || len(t.cards) == 0 {
		// No theme chosen: walk the combined deck in table order.
		return allCards()[index%len(allCards())]
	}

	n := len(t.cards)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	state := seed
	next := func() float64 {
		state = (state*9301 + 49297) % 233280
		return float64(state) / 233280
	}
	for i := n - 1; i > 0; i-- {
		j := int(next() * float64(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}

	return t.cards[perm[index%n]]
}

func allCards() []model.Card {
	cards := make([]model.Card, 0, 64)
	for _, id := range themeOrder {
		cards = append(cards, themes[id].cards...)
	}
	return cards
}

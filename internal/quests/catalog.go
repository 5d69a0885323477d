package quests

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"
)

// CatalogEntry is one drawable quest template. Weight is relative: an entry
// with weight 2 is drawn twice as often as weight 1.
type CatalogEntry struct {
	Type       string
	Format     string // description format, receives the target
	Target     int
	BaseReward int64
	Weight     int
}

// RarityTier is one multiplier bucket. MultiplierPct is in integer hundredths
// (100 = 1x) so payouts floor exactly.
type RarityTier struct {
	Name          string
	MultiplierPct int
	Weight        int
}

// Catalog is the versioned quest configuration loaded once at startup.
// Quests stamp the version they were generated from, so a mid-day catalog
// swap never rewrites already-generated quests.
type Catalog struct {
	Version  string
	Entries  []CatalogEntry
	Rarities []RarityTier
}

// Draw is the result of one weighted catalog draw.
type Draw struct {
	Type          string
	Description   string
	Target        int
	BaseReward    int64
	MultiplierPct int
	Rarity        string
}

// DefaultCatalog is the shipped v-whatever quest table. Weights skew toward
// the predicates every game mode produces.
func DefaultCatalog(version string) *Catalog {
	return &Catalog{
		Version: version,
		Entries: []CatalogEntry{
			{Type: "win", Format: "Win %d matches", Target: 3, BaseReward: 60, Weight: 3},
			{Type: "play", Format: "Play %d matches", Target: 5, BaseReward: 40, Weight: 4},
			{Type: "destroy_piece", Format: "Destroy %d enemy pieces", Target: 10, BaseReward: 50, Weight: 3},
			{Type: "place_wall", Format: "Place %d walls", Target: 8, BaseReward: 45, Weight: 3},
			{Type: "double_move", Format: "Use double move %d times", Target: 5, BaseReward: 50, Weight: 2},
			{Type: "convert_piece", Format: "Convert %d pieces", Target: 3, BaseReward: 70, Weight: 2},
			{Type: "draw", Format: "End %d matches in a draw", Target: 1, BaseReward: 80, Weight: 1},
			{Type: "play_online", Format: "Play %d online matches", Target: 3, BaseReward: 55, Weight: 3},
			{Type: "use_any_powerup", Format: "Use %d power-ups", Target: 6, BaseReward: 40, Weight: 3},
		},
		Rarities: []RarityTier{
			{Name: "common", MultiplierPct: 100, Weight: 70},
			{Name: "uncommon", MultiplierPct: 150, Weight: 20},
			{Name: "uncommon", MultiplierPct: 200, Weight: 7},
			{Name: "rare", MultiplierPct: 300, Weight: 3},
		},
	}
}

// Draw picks a quest template and a rarity tier, each by independent weighted
// draw from the given source.
func (c *Catalog) Draw(rng *rand.Rand) Draw {
	entry := c.Entries[weightedIndex(rng, len(c.Entries), func(i int) int { return c.Entries[i].Weight })]
	tier := c.Rarities[weightedIndex(rng, len(c.Rarities), func(i int) int { return c.Rarities[i].Weight })]
	return Draw{
		Type:          entry.Type,
		Description:   fmt.Sprintf(entry.Format, entry.Target),
		Target:        entry.Target,
		BaseReward:    entry.BaseReward,
		MultiplierPct: tier.MultiplierPct,
		Rarity:        tier.Name,
	}
}

func weightedIndex(rng *rand.Rand, n int, weight func(int) int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += weight(i)
	}
	roll := rng.Intn(total)
	for i := 0; i < n; i++ {
		roll -= weight(i)
		if roll < 0 {
			return i
		}
	}
	return n - 1
}

// seedFor makes daily generation reproducible per (account, day): a crashed
// rotation replayed later draws the identical batch, and ON CONFLICT keeps
// whichever copy landed first.
func seedFor(accountID uuid.UUID, day int64) int64 {
	h := fnv.New64a()
	h.Write(accountID[:])
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(day >> (8 * i))
	}
	h.Write(buf[:])
	return int64(h.Sum64())
}

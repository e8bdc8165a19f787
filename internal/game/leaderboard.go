package game

import "sort"

// RankPlayers orders players by kills (descending), then deaths (ascending),
// then name and ID for a stable tie-break, and returns the top n.
// n <= 0 returns every player.
func RankPlayers(players []*Player, n int) []LeaderboardEntry {
	ranked := make([]*Player, len(players))
	copy(ranked, players)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Deaths != b.Deaths {
			return a.Deaths < b.Deaths
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	entries := make([]LeaderboardEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = LeaderboardEntry{
			Rank:   i + 1,
			ID:     p.ID,
			Name:   p.Name,
			Kills:  p.Kills,
			Deaths: p.Deaths,
		}
	}
	return entries
}

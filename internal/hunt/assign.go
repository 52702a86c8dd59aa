package hunt

import "math/rand"

// AssignLevels builds one ordered level sequence per team. Every team starts
// at levelIDs[0] and ends at the last element; the middle levels are scrambled
// independently per team so that no team repeats a level within its own
// sequence, and, best effort, no two teams visit the same level at the same
// position. Slot diversity is a soft preference only: with small pools and
// many teams collisions are expected and fine.
//
// Selection at each middle slot falls back in strict order when the candidate
// set empties:
//
//  1. unused by this team and unused at this slot by any team
//  2. unused by this team
//  3. forget which levels other teams used at this slot, retry 2
//  4. forget which levels this team used (keep the start level), retry 2
//  5. any middle level
//
// The caller owns persistence; this is pure computation over the given IDs.
func AssignLevels(levelIDs, teamIDs []string, rng *rand.Rand) map[string][]string {
	out := make(map[string][]string, len(teamIDs))
	if len(levelIDs) == 0 {
		return out
	}

	first := levelIDs[0]
	last := levelIDs[len(levelIDs)-1]
	var middle []string
	if len(levelIDs) > 2 {
		middle = levelIDs[1 : len(levelIDs)-1]
	}

	usedAtSlot := make([]map[string]bool, len(middle))
	for i := range usedAtSlot {
		usedAtSlot[i] = make(map[string]bool)
	}

	for _, teamID := range teamIDs {
		if len(levelIDs) == 1 {
			out[teamID] = []string{first}
			continue
		}

		seq := make([]string, 0, len(levelIDs))
		seq = append(seq, first)
		usedByTeam := map[string]bool{first: true}

		for slot := range middle {
			id := pickMiddle(middle, usedAtSlot[slot], usedByTeam, first, rng)
			seq = append(seq, id)
			usedAtSlot[slot][id] = true
			usedByTeam[id] = true
		}

		seq = append(seq, last)
		out[teamID] = seq
	}
	return out
}

func pickMiddle(middle []string, slotUsed, teamUsed map[string]bool, first string, rng *rand.Rand) string {
	if c := candidates(middle, func(id string) bool { return !slotUsed[id] && !teamUsed[id] }); len(c) > 0 {
		return c[rng.Intn(len(c))]
	}
	if c := candidates(middle, func(id string) bool { return !teamUsed[id] }); len(c) > 0 {
		return c[rng.Intn(len(c))]
	}

	// The team has cycled through every middle level. Drop the cross-team
	// history for this slot first, then the team's own history.
	clear(slotUsed)
	if c := candidates(middle, func(id string) bool { return !teamUsed[id] }); len(c) > 0 {
		return c[rng.Intn(len(c))]
	}

	clear(teamUsed)
	teamUsed[first] = true
	if c := candidates(middle, func(id string) bool { return !teamUsed[id] }); len(c) > 0 {
		return c[rng.Intn(len(c))]
	}

	return middle[rng.Intn(len(middle))]
}

func candidates(middle []string, keep func(string) bool) []string {
	var c []string
	for _, id := range middle {
		if keep(id) {
			c = append(c, id)
		}
	}
	return c
}

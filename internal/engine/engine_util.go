package engine

import "slices"

func NewState() State {
	return State{
		Phase: PhaseQueue,
		Notes: map[string]string{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Unpicked returns queued players not yet on either roster, in queue order.
func Unpicked(s State) []Player {
	var out []Player
	for _, p := range s.Queue {
		if !onTeam(s.Draft, p.ID) {
			out = append(out, p)
		}
	}
	return out
}

func indexOf(players []Player, id string) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func contains(players []Player, id string) bool {
	return indexOf(players, id) >= 0
}

func onTeam(d Draft, id string) bool {
	return contains(d.TeamA, id) || contains(d.TeamB, id)
}

func isCaptain(d Draft, id string) bool {
	if d.CaptainA != nil && d.CaptainA.ID == id {
		return true
	}
	return d.CaptainB != nil && d.CaptainB.ID == id
}

func removeAt(players []Player, i int) []Player {
	out := slices.Clone(players)
	return slices.Delete(out, i, i+1)
}

func dropNote(notes map[string]string, id string) map[string]string {
	if _, ok := notes[id]; !ok {
		return notes
	}
	out := make(map[string]string, len(notes))
	for k, v := range notes {
		if k != id {
			out[k] = v
		}
	}
	return out
}

func evt(t EventType, p Player, count int) Event {
	return Event{Type: t, Player: &p, Count: count}
}

func ref(p Player) *Player {
	return &p
}

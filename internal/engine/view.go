package engine

import (
	"encoding/json"
	"sort"

	"github.com/contagio-game/server/internal/domain/participant"
)

// Outbound message types. These match what the web client dispatches on.
const (
	MsgGameStateUpdate      = "GAME_STATE_UPDATE"
	MsgPrivateFeedback      = "PRIVATE_FEEDBACK"
	MsgActionConfirmed      = "ACTION_CONFIRMED"
	MsgTerroristChatMessage = "TERRORIST_CHAT_MESSAGE"
)

type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// playerView is the redacted roster entry every participant may see.
// Roles are never included here.
type playerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsAlive  bool   `json:"isAlive"`
	Position int    `json:"position"`
}

// youView is the private slice of state each participant gets about
// themselves. Partner is set only for the terrorist pair.
type youView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsAlive  bool   `json:"isAlive"`
	Immune   bool   `json:"immune"`
	Position int    `json:"position"`
	Partner  string `json:"partner,omitempty"`
}

// stateView is the payload of GAME_STATE_UPDATE. The shared fields are
// identical for everyone; You is personalized and absent for spectators.
type stateView struct {
	Phase        participant.Phase `json:"phase"`
	Round        int               `json:"round"`
	CureProgress int               `json:"cureProgress"`
	GameLog      []string          `json:"gameLog"`
	Players      []playerView      `json:"players"`
	Votes        map[string]string `json:"votes,omitempty"`
	You          *youView          `json:"you,omitempty"`
	WinData      *WinRecord        `json:"winData,omitempty"`
}

// sharedState builds the spectator view: everything public, nothing private.
func (m *Match) sharedState() stateView {
	sv := stateView{
		Phase:        m.phase,
		Round:        m.round,
		CureProgress: m.cure,
		GameLog:      append([]string(nil), m.gameLog...),
		WinData:      m.win,
	}
	for _, p := range m.ordered() {
		sv.Players = append(sv.Players, playerView{
			ID:       p.ID,
			Name:     p.Name,
			IsAlive:  p.Alive,
			Position: p.Seat,
		})
	}
	if m.phase == participant.PhaseDay {
		sv.Votes = make(map[string]string, len(m.votes))
		for voter, target := range m.votes {
			sv.Votes[voter] = target
		}
	}
	return sv
}

// stateFor personalizes the shared view for one participant.
func (m *Match) stateFor(p *participant.Participant) stateView {
	sv := m.sharedState()
	you := &youView{
		ID:       p.ID,
		Name:     p.Name,
		Role:     string(p.Role),
		IsAlive:  p.Alive,
		Immune:   p.Immune,
		Position: p.Seat,
	}
	if partner, ok := m.roster[p.PartnerID]; ok {
		you.Partner = partner.Name
	}
	sv.You = you
	return sv
}

// ordered returns the roster in seat order (join order before seats exist).
func (m *Match) ordered() []*participant.Participant {
	out := make([]*participant.Participant, 0, len(m.joinOrder))
	for _, id := range m.joinOrder {
		if p, ok := m.roster[id]; ok {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

func marshalMessage(msgType string, payload interface{}) []byte {
	b, err := json.Marshal(envelope{Type: msgType, Payload: payload})
	if err != nil {
		return nil
	}
	return b
}

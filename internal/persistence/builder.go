package persistence

import (
	"time"

	"github.com/lox/pokertable/internal/deck"
	"github.com/lox/pokertable/internal/gameid"
	"github.com/lox/pokertable/internal/table"
)

// NewHandRecord builds the archive row for one completed hand. tableID
// identifies which table the hand belongs to; everything else comes
// straight off the table.HandComplete event the session coordinator
// receives.
func NewHandRecord(tableID string, ev table.HandComplete) HandRecord {
	participants := make([]ParticipantRecord, 0, len(ev.Participants))
	for _, p := range ev.Participants {
		participants = append(participants, ParticipantRecord{
			Seat:           p.Seat,
			Identity:       p.Identity,
			Handle:         p.Handle,
			StartingStack:  p.StartingStack,
			EndingStack:    p.EndingStack,
			TotalCommitted: p.TotalCommitted,
			WonAmount:      p.WonAmount,
			FinalHandName:  p.FinalHandName,
			Folded:         p.Folded,
		})
	}
	return HandRecord{
		ID:           gameid.Generate(),
		TableID:      tableID,
		HandNumber:   ev.HandNumber,
		PlayedAt:     time.Now(),
		Community:    cardStrings(ev.CommunityEnd),
		PotTotal:     ev.PotTotal,
		HistoryText:  ev.HandHistory,
		Participants: participants,
	}
}

func cardStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

package handhistory

import "github.com/lox/pokertable/internal/persistence"

// ring is a fixed-capacity, newest-first buffer of recently completed
// hands for one table. It exists so the admin surface can answer
// "recent hands for this identity" without a store round trip; older
// hands fall out of the ring and are only reachable through the Store.
type ring struct {
	cap   int
	items []persistence.HandRecord
}

func newRing(capacity int) *ring {
	return &ring{cap: capacity}
}

func (r *ring) add(rec persistence.HandRecord) {
	r.items = append([]persistence.HandRecord{rec}, r.items...)
	if len(r.items) > r.cap {
		r.items = r.items[:r.cap]
	}
}

func (r *ring) recentByIdentity(identity []byte, limit int) []persistence.HandRecord {
	var out []persistence.HandRecord
	for _, rec := range r.items {
		if limit > 0 && len(out) >= limit {
			break
		}
		for _, p := range rec.Participants {
			if sameBytes(p.Identity, identity) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func sameBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

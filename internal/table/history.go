package table

// logPublic appends a public hand-history line and emits it to every
// subscriber in the room.
func (t *Table) logPublic(line string) {
	t.Log = append(t.Log, line)
	t.emitEvent(HandLog{Public: []string{line}})
}

// logPrivate appends a private per-seat line (the "dealt to" line) and
// emits it addressed only to that seat's owning identity.
func (t *Table) logPrivate(seat int, line string) {
	if t.privateLines == nil {
		t.privateLines = make(map[int][]string)
	}
	t.privateLines[seat] = append(t.privateLines[seat], line)
	t.emitEvent(HandLog{Private: map[int]string{seat: line}})
}

// buildHistoryText renders the full archival hand history: every
// private "dealt to" line (revealed, since this is a post-hoc archive,
// not a live broadcast subject to visibility rules) followed by the
// public lines in order.
func (t *Table) buildHistoryText() string {
	text := ""
	for seat := 0; seat < len(t.Seats); seat++ {
		for _, line := range t.privateLines[seat] {
			text += line + "\n"
		}
	}
	for _, line := range t.Log {
		text += line + "\n"
	}
	return text
}

package journal

// Mirror receives a best-effort, write-behind copy of every appended
// entry. A mirror write failure is logged by the Journal, never returned
// as an Append error — the authoritative state is the in-memory journal
// (and its file, if configured), never the mirror.
type Mirror interface {
	Write(entry Entry) error
}

// noopMirror is the default Mirror: it does nothing.
type noopMirror struct{}

func (noopMirror) Write(Entry) error { return nil }

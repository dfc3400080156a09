package listview

import "ledgerview/internal/core"

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseEmpty
	PhasePopulated
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseEmpty:
		return "empty"
	case PhasePopulated:
		return "populated"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Row is a record annotated with its presentation category.
type Row struct {
	Record   core.Record
	Category core.Category
}

// State is an immutable snapshot of a list. Rows is only set when Phase is
// PhasePopulated and is never modified after the snapshot is published.
type State struct {
	Phase Phase
	// NoContext marks an Empty state reached because the kind's scope was
	// missing. No fetch was issued.
	NoContext bool
	// Reason is the failure message for PhaseFailed or the placeholder for
	// NoContext.
	Reason     string
	Rows       []Row
	Generation uint64
}

func classifyRows(recs []core.Record) []Row {
	rows := make([]Row, len(recs))
	for i, r := range recs {
		rows[i] = Row{Record: r, Category: core.ClassifyRecord(r)}
	}
	return rows
}

package tidy

import "fmt"

// State is a step of the replace transaction.
//
//	Idle -> Extracted -> Walked -> Packed -> Committed
//
// Failed is reachable from every state except Committed.
type State int

const (
	Idle State = iota
	Extracted
	Walked
	Packed
	Committed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Extracted:
		return "extracted"
	case Walked:
		return "walked"
	case Packed:
		return "packed"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

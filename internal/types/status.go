package types

// Status is the lifecycle state of a planning object. Legal values depend on
// the kind.
type Status string

// Status constants
const (
	StatusDraft      Status = "draft"
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

var (
	taskStatuses      = []Status{StatusOpen, StatusInProgress, StatusReview, StatusDone}
	containerStatuses = []Status{StatusDraft, StatusInProgress, StatusDone}
)

// LegalStatuses returns the statuses allowed for kind k, in lifecycle order.
func LegalStatuses(k Kind) []Status {
	switch k {
	case KindTask:
		return append([]Status(nil), taskStatuses...)
	case KindProject, KindEpic, KindFeature:
		return append([]Status(nil), containerStatuses...)
	}
	return nil
}

// IsValidFor reports whether s is a legal status for kind k.
func (s Status) IsValidFor(k Kind) bool {
	for _, legal := range LegalStatuses(k) {
		if s == legal {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s ends the lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// DefaultStatus is the status given to a new object of kind k when none is set.
func DefaultStatus(k Kind) Status {
	if k == KindTask {
		return StatusOpen
	}
	return StatusDraft
}

package project

var transitions = map[Status][]Status{
	StatusPending: {StatusActive},
	StatusActive:  {StatusCompleted, StatusCancelled},
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidateTransition checks a requested status change. Keeping the current
// status is always allowed.
func ValidateTransition(from, to Status) error {
	if !ValidStatus(to) {
		return ErrInvalidTransition
	}
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

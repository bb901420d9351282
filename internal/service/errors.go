package service

// Error is a rejected engine operation with corrective guidance for the user.
type Error struct {
	msg      string
	guidance string
}

func (e *Error) Error() string    { return e.msg }
func (e *Error) Guidance() string { return e.guidance }

var (
	ErrDuplicateClient = &Error{
		"client already recorded for this slot",
		"Edit the existing event instead of adding the client twice.",
	}
	ErrSlotHasEvents = &Error{
		"slot already has events",
		"Delete the slot's events before marking it as having no event.",
	}
	ErrWouldLeaveGap = &Error{
		"deleting the only record of an earlier slot would leave a gap",
		"Replace the record with a no-event marker or edit it instead.",
	}
	ErrSlotChange = &Error{
		"a record cannot move to another slot",
		"Delete the record and create it again in the right slot.",
	}
	ErrNoEventEdit = &Error{
		"a no-event marker has no details to edit",
		"Create an event in the slot; it replaces the marker.",
	}
	ErrImportConflict = &Error{
		"import overlaps slots that already have records",
		"Delete the existing records of those slots or drop them from the file.",
	}
)

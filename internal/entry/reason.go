package entry

import (
	"errors"
	"fmt"

	"github.com/julianstephens/banquet/internal/slot"
)

// Reason explains why Next could not offer an open slot.
type Reason int

const (
	// Open means the returned slot is eligible for entry.
	Open Reason = iota
	InvalidContract
	FutureContract
	ContractExhausted
	AllCaughtUp
	// NoContract means the contract dates were never seeded.
	NoContract
)

var (
	ErrNoContract        = errors.New("hotel has no contract dates")
	ErrInvalidContract   = errors.New("invalid contract: end date is before start date")
	ErrFutureContract    = errors.New("cannot enter events for a future contract")
	ErrContractExhausted = errors.New("contract period is fully entered")
	ErrAllCaughtUp       = errors.New("all slots up to the lock-in date are entered")
	ErrBeforeContract    = errors.New("date is before the contract start date")
	ErrSlotNotOpen       = errors.New("slot is not open for data entry")
	ErrRecordLocked      = errors.New("records before the previous lock-in date cannot be changed")
)

func (r Reason) String() string {
	switch r {
	case Open:
		return "open"
	case InvalidContract:
		return "invalid_contract"
	case FutureContract:
		return "future_contract"
	case ContractExhausted:
		return "contract_exhausted"
	case AllCaughtUp:
		return "all_caught_up"
	case NoContract:
		return "no_contract"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Err returns the sentinel error for r, or nil for Open.
func (r Reason) Err() error {
	switch r {
	case InvalidContract:
		return ErrInvalidContract
	case FutureContract:
		return ErrFutureContract
	case ContractExhausted:
		return ErrContractExhausted
	case AllCaughtUp:
		return ErrAllCaughtUp
	case NoContract:
		return ErrNoContract
	default:
		return nil
	}
}

// Error is returned by the write guards. It unwraps to one of the sentinel errors above.
type Error struct {
	Err  error
	Next slot.Slot
	At   slot.Slot
}

func (e *Error) Error() string {
	if e.At.IsZero() {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.At, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Guidance is the corrective text shown to the person entering data.
func (e *Error) Guidance() string {
	switch {
	case errors.Is(e.Err, ErrNoContract):
		return "Ask an administrator to seed the contract start and end dates."
	case errors.Is(e.Err, ErrInvalidContract):
		return "Ask an administrator to correct the contract dates."
	case errors.Is(e.Err, ErrFutureContract):
		return "Data entry opens on the contract start date."
	case errors.Is(e.Err, ErrContractExhausted):
		return "Every slot of the contract has been entered."
	case errors.Is(e.Err, ErrAllCaughtUp):
		return "Everything up to the lock-in date is entered; come back after the next lock-in."
	case errors.Is(e.Err, ErrBeforeContract):
		return "Pick a date inside the contract period."
	case errors.Is(e.Err, ErrSlotNotOpen):
		if !e.Next.IsZero() {
			return fmt.Sprintf("The next slot open for entry is %s.", e.Next)
		}
		return "Complete the earlier slots first."
	case errors.Is(e.Err, ErrRecordLocked):
		return "Ask an administrator to change records of a closed week."
	}
	return ""
}

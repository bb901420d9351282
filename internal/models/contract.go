package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/banquet/internal/calendar"
)

var ErrContractDates = errors.New("invalid contract dates")

// Contract is the inclusive date range during which a hotel reports occupancy.
// End before Start is representable; the entry cursor reports it as InvalidContract.
type Contract struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewContract(start, end time.Time) Contract {
	return Contract{Start: calendar.Truncate(start), End: calendar.Truncate(end)}
}

// IsSet reports whether both bounds were seeded.
func (c Contract) IsSet() bool {
	return !c.Start.IsZero() && !c.End.IsZero()
}

// IsValid reports whether date lies inside the contract.
func (c Contract) IsValid(date time.Time) bool {
	date = calendar.Truncate(date)
	return !date.Before(c.Start) && !date.After(c.End)
}

func (c Contract) IsExpired(today time.Time) bool {
	return c.End.Before(calendar.Truncate(today))
}

// Validate checks the ordering of the bounds.
func (c Contract) Validate() error {
	if !c.IsSet() {
		return fmt.Errorf("%w: start and end dates are required", ErrContractDates)
	}
	if c.End.Before(c.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrContractDates,
			calendar.FormatDisplay(c.End), calendar.FormatDisplay(c.Start))
	}
	return nil
}

func (c Contract) String() string {
	if !c.IsSet() {
		return "no contract"
	}
	return fmt.Sprintf("%s to %s", calendar.FormatDisplay(c.Start), calendar.FormatDisplay(c.End))
}

package entries

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/banquet/internal/cli"
	"github.com/julianstephens/banquet/internal/models"
	"github.com/julianstephens/banquet/internal/slot"
)

type EntryCmd struct {
	Next     NextCmd     `cmd:"" help:"Show the next slot open for data entry."`
	Add      AddCmd      `cmd:"" help:"Enter an event."`
	NoEvent  NoEventCmd  `cmd:"" name:"no-event" help:"Mark a slot as having no events."`
	Edit     EditCmd     `cmd:"" help:"Edit an event's details."`
	Delete   DeleteCmd   `cmd:"" help:"Delete an event or no-event marker."`
	Show     ShowCmd     `cmd:"" help:"List a hotel's records."`
	Rollback RollbackCmd `cmd:"" help:"Move a hotel's cursor back (admin)."`
}

// slotFlags selects a slot. Without a date the hotel's next open slot is used.
type slotFlags struct {
	Date   string `help:"Slot date. Defaults to the next open slot." short:"d"`
	Timing string `help:"Morning or Evening." short:"t"`
}

func (f slotFlags) resolve(ctx *cli.Context, h *models.Hotel) (slot.Slot, error) {
	if f.Date == "" {
		if f.Timing != "" {
			return slot.Slot{}, errors.New("--timing needs --date")
		}
		next, err := ctx.Engine.NextSlot(ctx.Ctx(), h.ID)
		if err != nil {
			return slot.Slot{}, err
		}
		if err := next.Err(); err != nil {
			return slot.Slot{}, err
		}
		return next.Slot, nil
	}
	date, err := cli.ParseDate(f.Date)
	if err != nil {
		return slot.Slot{}, err
	}
	timing, err := slot.ParseTiming(f.Timing)
	if err != nil {
		return slot.Slot{}, err
	}
	return slot.New(date, timing), nil
}

type NextCmd struct {
	Hotel string `arg:"" help:"Hotel name or ID."`
}

func (c *NextCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	next, err := ctx.Engine.NextSlot(ctx.Ctx(), h.ID)
	if err != nil {
		return err
	}
	if err := next.Err(); err != nil {
		cli.Warnf("%s: %v", h, err)
		cli.Hint(err)
		return nil
	}
	cli.Field(h.String(), next.Slot)
	return nil
}

type AddCmd struct {
	Hotel       string    `arg:"" help:"Hotel name or ID."`
	Slot        slotFlags `embed:""`
	Client      string    `help:"Client name."`
	EventType   string    `help:"Event type." name:"type"`
	Meal        string    `help:"Meal, e.g. 'Breakfast, Lunch' or 'No Meal'."`
	Ballrooms   []string  `help:"Ballrooms used." sep:","`
	Description string    `help:"Event description."`
}

// Run enters an event. Missing fields are prompted for.
func (c *AddCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	target, err := c.Slot.resolve(ctx, h)
	if err != nil {
		return err
	}

	form := &cli.EventForm{
		Client:      c.Client,
		EventType:   c.EventType,
		Meal:        c.Meal,
		Ballrooms:   c.Ballrooms,
		Description: c.Description,
	}
	if !form.Complete() {
		if err := cli.NewEventForm(form, h, target, ctx.Engine.Vocabulary()).Run(); err != nil {
			return err
		}
	}

	rec, err := ctx.Engine.CreateEvent(ctx.Ctx(), ctx.Actor, h.ID, form.Record(target))
	if err != nil {
		return err
	}
	cli.Successf("Entered %s (ID: %s)", rec, rec.ID)
	return nil
}

type NoEventCmd struct {
	Hotel string    `arg:"" help:"Hotel name or ID."`
	Slot  slotFlags `embed:""`
}

func (c *NoEventCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	target, err := c.Slot.resolve(ctx, h)
	if err != nil {
		return err
	}
	rec, err := ctx.Engine.MarkNoEvent(ctx.Ctx(), ctx.Actor, h.ID, target)
	if err != nil {
		return err
	}
	cli.Successf("Marked %s", rec)
	return nil
}

type EditCmd struct {
	ID          string    `arg:"" help:"Record ID."`
	Client      *string   `help:"Client name."`
	EventType   *string   `help:"Event type." name:"type"`
	Meal        *string   `help:"Meal choice."`
	Ballrooms   *[]string `help:"Ballrooms used." sep:","`
	Description *string   `help:"Event description."`
}

func (c *EditCmd) Run(ctx *cli.Context) error {
	rec, err := ctx.Engine.Store().GetRecord(ctx.Ctx(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to find record %s: %w", c.ID, err)
	}
	if c.Client != nil {
		rec.Client = strings.TrimSpace(*c.Client)
	}
	if c.EventType != nil {
		rec.EventType = *c.EventType
	}
	if c.Meal != nil {
		rec.Meals = models.ExpandMeal(*c.Meal)
	}
	if c.Ballrooms != nil {
		rec.Ballrooms = *c.Ballrooms
	}
	if c.Description != nil {
		rec.EventDescription = *c.Description
	}
	updated, err := ctx.Engine.UpdateEvent(ctx.Ctx(), ctx.Actor, rec)
	if err != nil {
		return err
	}
	cli.Successf("Updated %s", updated)
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Record ID."`
}

func (c *DeleteCmd) Run(ctx *cli.Context) error {
	rec, err := ctx.Engine.Store().GetRecord(ctx.Ctx(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to find record %s: %w", c.ID, err)
	}
	ok, err := cli.Confirm(fmt.Sprintf("Delete %s?", rec), "Deleting the last record of the cursor slot moves the cursor back.", ctx.Yes)
	if err != nil || !ok {
		return err
	}
	ctx.PerformAutomaticBackup()
	if err := ctx.Engine.DeleteRecord(ctx.Ctx(), ctx.Actor, c.ID); err != nil {
		return err
	}
	cli.Successf("Deleted %s", rec)
	return nil
}

type ShowCmd struct {
	Hotel   string `arg:"" help:"Hotel name or ID."`
	From    string `help:"First date."`
	To      string `help:"Last date."`
	ShowIDs bool   `help:"Show record IDs." name:"show-ids"`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	var bounds [2]time.Time
	for i, v := range []string{c.From, c.To} {
		if v == "" {
			continue
		}
		if bounds[i], err = cli.ParseDate(v); err != nil {
			return err
		}
	}
	records, err := ctx.Engine.Records(ctx.Ctx(), h.ID, bounds[0], bounds[1])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(cli.Out, "No records for %s\n", h)
		return nil
	}
	headers, rows := cli.RecordRows(records, c.ShowIDs)
	fmt.Fprintln(cli.Out, cli.Table(headers, rows))
	return nil
}

type RollbackCmd struct {
	Hotel  string `arg:"" help:"Hotel name or ID."`
	Date   string `help:"Move the cursor onto this date instead of one slot back."`
	Timing string `help:"Timing of --date." default:"Evening"`
}

func (c *RollbackCmd) Run(ctx *cli.Context) error {
	if !ctx.Actor.Admin {
		return errors.New("rollback is an administrative command, run it with --admin")
	}
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}

	var to slot.Slot
	if c.Date != "" {
		date, err := cli.ParseDate(c.Date)
		if err != nil {
			return err
		}
		timing, err := slot.ParseTiming(c.Timing)
		if err != nil {
			return err
		}
		to = slot.New(date, timing)
	}

	ok, err := cli.Confirm(fmt.Sprintf("Roll back the cursor of %s (now %s)?", h, h.Cursor),
		"Records after the new cursor are kept and can be re-entered over.", ctx.Yes)
	if err != nil || !ok {
		return err
	}
	ctx.PerformAutomaticBackup()
	cursor, err := ctx.Engine.ForceRollback(ctx.Ctx(), h.ID, to)
	if err != nil {
		return err
	}
	cli.Successf("Cursor of %s is now %s", h, cursor)
	return nil
}

package hotels

import (
	"fmt"
	"strings"

	"github.com/julianstephens/banquet/internal/cli"
	"github.com/julianstephens/banquet/internal/constants"
	"github.com/julianstephens/banquet/internal/models"
)

type HotelCmd struct {
	Add      HotelAddCmd      `cmd:"" help:"Register a hotel."`
	List     HotelListCmd     `cmd:"" help:"List hotels." default:"1"`
	Show     HotelShowCmd     `cmd:"" help:"Show a hotel and its entry position."`
	Edit     HotelEditCmd     `cmd:"" help:"Edit a hotel's details."`
	Contract HotelContractCmd `cmd:"" help:"Seed a hotel's contract dates."`
	Ballroom BallroomCmd      `cmd:"" help:"Manage a hotel's ballrooms."`
}

type HotelAddCmd struct {
	Name      string   `arg:"" help:"Hotel name."`
	Start     string   `help:"Contract start date."`
	End       string   `help:"Contract end date."`
	Ballrooms []string `help:"Ballroom names." sep:","`
}

func (c *HotelAddCmd) Run(ctx *cli.Context) error {
	city := ctx.City
	if city == "" {
		city = constants.DefaultCity
	}

	var contract models.Contract
	if c.Start != "" || c.End != "" {
		start, err := cli.ParseDate(c.Start)
		if err != nil {
			return err
		}
		end, err := cli.ParseDate(c.End)
		if err != nil {
			return err
		}
		contract = models.NewContract(start, end)
	}

	h, err := ctx.Engine.AddHotel(ctx.Ctx(), c.Name, city, contract, c.Ballrooms...)
	if err != nil {
		return fmt.Errorf("failed to add hotel: %w", err)
	}
	cli.Successf("Added hotel %s (ID: %s)", h, h.ID)
	return nil
}

type HotelListCmd struct {
	ShowIDs bool `help:"Show hotel IDs." name:"show-ids"`
}

func (c *HotelListCmd) Run(ctx *cli.Context) error {
	hotels, err := ctx.Engine.Hotels(ctx.Ctx(), ctx.City)
	if err != nil {
		return fmt.Errorf("failed to list hotels: %w", err)
	}
	if len(hotels) == 0 {
		fmt.Fprintln(cli.Out, "No hotels found")
		return nil
	}

	headers := []string{"Hotel", "City", "Contract", "Cursor", "Ballrooms"}
	if c.ShowIDs {
		headers = append([]string{"ID"}, headers...)
	}
	rows := make([][]string, 0, len(hotels))
	for _, h := range hotels {
		row := []string{h.Name, h.City, h.Contract.String(), h.Cursor.String(), strings.Join(h.BallroomNames(), ", ")}
		if c.ShowIDs {
			row = append([]string{h.ID}, row...)
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(cli.Out, cli.Table(headers, rows))
	return nil
}

type HotelShowCmd struct {
	Hotel string `arg:"" help:"Hotel name or ID."`
}

func (c *HotelShowCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	next, err := ctx.Engine.NextSlot(ctx.Ctx(), h.ID)
	if err != nil {
		return err
	}

	cli.Field("Hotel", h.Name)
	cli.Field("ID", h.ID)
	cli.Field("City", h.City)
	if h.Initial != "" {
		cli.Field("Initial", h.Initial)
	}
	if h.Email != "" {
		cli.Field("Email", h.Email)
	}
	if len(h.Competitions) > 0 {
		cli.Field("Competitions", strings.Join(h.Competitions, ", "))
	}
	cli.Field("Contract", h.Contract)
	cli.Field("Cursor", h.Cursor)
	cli.Field("Ballrooms", ballroomSummary(h))
	if err := next.Err(); err != nil {
		cli.Field("Next entry", err)
		cli.Hint(err)
	} else {
		cli.Field("Next entry", next.Slot)
	}
	return nil
}

func ballroomSummary(h *models.Hotel) string {
	names := make([]string, len(h.Ballrooms))
	for i, b := range h.Ballrooms {
		names[i] = b.Name
		if b.Used {
			names[i] += " (in use)"
		}
	}
	return strings.Join(names, ", ")
}

type HotelEditCmd struct {
	Hotel        string    `arg:"" help:"Hotel name or ID."`
	Name         *string   `help:"New hotel name."`
	Initial      *string   `help:"Two or three letter initial."`
	Email        *string   `help:"Contact email."`
	Competitions *[]string `help:"Competing hotels." sep:","`
}

func (c *HotelEditCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	saved, err := ctx.Engine.UpdateHotel(ctx.Ctx(), h.ID, func(h *models.Hotel) error {
		if c.Name != nil {
			h.Name = strings.TrimSpace(*c.Name)
		}
		if c.Initial != nil {
			h.Initial = strings.ToUpper(strings.TrimSpace(*c.Initial))
		}
		if c.Email != nil {
			h.Email = strings.TrimSpace(*c.Email)
		}
		if c.Competitions != nil {
			h.Competitions = *c.Competitions
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update hotel: %w", err)
	}
	cli.Successf("Updated hotel %s", saved)
	return nil
}

type HotelContractCmd struct {
	Hotel string `arg:"" help:"Hotel name or ID."`
	Start string `arg:"" help:"Contract start date."`
	End   string `arg:"" help:"Contract end date."`
}

func (c *HotelContractCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	start, err := cli.ParseDate(c.Start)
	if err != nil {
		return err
	}
	end, err := cli.ParseDate(c.End)
	if err != nil {
		return err
	}
	saved, err := ctx.Engine.SeedContract(ctx.Ctx(), h.ID, start, end)
	if err != nil {
		return err
	}
	cli.Successf("Contract of %s set to %s", saved, saved.Contract)
	return nil
}

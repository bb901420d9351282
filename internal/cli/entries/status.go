package entries

import (
	"fmt"

	"github.com/julianstephens/banquet/internal/cli"
)

type StatusCmd struct {
	Days int `help:"Number of past days shown." default:"0"`
}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	days := c.Days
	if days <= 0 {
		days = ctx.Config.StatusDays
	}
	if days > 31 {
		return fmt.Errorf("--days must be at most 31")
	}
	board, err := ctx.Engine.Status(ctx.Ctx(), ctx.City, days)
	if err != nil {
		return err
	}
	if len(board.Rows) == 0 {
		fmt.Fprintln(cli.Out, "No hotels found")
		return nil
	}
	return board.Render(cli.Out)
}

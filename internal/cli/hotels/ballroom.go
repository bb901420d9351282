package hotels

import (
	"github.com/julianstephens/banquet/internal/cli"
)

type BallroomCmd struct {
	Add    BallroomAddCmd    `cmd:"" help:"Add a ballroom."`
	Remove BallroomRemoveCmd `cmd:"" help:"Remove a ballroom that no event uses."`
	Rename BallroomRenameCmd `cmd:"" help:"Rename a ballroom that no event uses."`
}

type BallroomAddCmd struct {
	Hotel string `arg:"" help:"Hotel name or ID."`
	Name  string `arg:"" help:"Ballroom name."`
}

func (c *BallroomAddCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	if _, err := ctx.Engine.AddBallroom(ctx.Ctx(), h.ID, c.Name); err != nil {
		return err
	}
	cli.Successf("Added ballroom %s to %s", c.Name, h)
	return nil
}

type BallroomRemoveCmd struct {
	Hotel string `arg:"" help:"Hotel name or ID."`
	Name  string `arg:"" help:"Ballroom name."`
}

func (c *BallroomRemoveCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	if _, err := ctx.Engine.RemoveBallroom(ctx.Ctx(), h.ID, c.Name); err != nil {
		return err
	}
	cli.Successf("Removed ballroom %s from %s", c.Name, h)
	return nil
}

type BallroomRenameCmd struct {
	Hotel string `arg:"" help:"Hotel name or ID."`
	Old   string `arg:"" help:"Current ballroom name."`
	New   string `arg:"" help:"New ballroom name."`
}

func (c *BallroomRenameCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	if _, err := ctx.Engine.RenameBallroom(ctx.Ctx(), h.ID, c.Old, c.New); err != nil {
		return err
	}
	cli.Successf("Renamed ballroom %s to %s", c.Old, c.New)
	return nil
}

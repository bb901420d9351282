package entries

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/julianstephens/banquet/internal/cli"
	"github.com/julianstephens/banquet/internal/importer"
)

type ImportCmd struct {
	Hotel string `arg:"" help:"Hotel name or ID."`
	File  string `arg:"" help:"CSV file to import." type:"existingfile"`
}

// Run imports a CSV batch. Rejections list the offending rows.
func (c *ImportCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Hotel(c.Hotel)
	if err != nil {
		return err
	}
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := ctx.Engine.Import(ctx.Ctx(), ctx.Actor, h.ID, f)
	if err != nil {
		printRowErrors(err)
		return err
	}
	cli.Successf("Imported %d rows for %s (%s to %s)", result.Rows, h, result.First, result.Last)
	cli.Field("Cursor", result.Cursor)
	return nil
}

func printRowErrors(err error) {
	var pe *importer.ParseError
	if !errors.As(err, &pe) {
		return
	}
	rows := make([][]string, 0, len(pe.Rows))
	for _, r := range pe.Rows {
		rows = append(rows, []string{strconv.Itoa(r.Index), strings.Join(r.Fields, ", ")})
	}
	fmt.Fprintln(cli.Out, cli.Table([]string{"Row", "Invalid fields"}, rows))
}

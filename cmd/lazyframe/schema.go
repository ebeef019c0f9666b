package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"

	"github.com/JacekPliszka/polars/pkg/engine/scan"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// schemaCommand prints the inferred schema of each CSV file.
type schemaCommand struct {
	files *[]string
}

func addSchemaCommand(app *kingpin.Application, _ *globals) {
	cmd := &schemaCommand{}
	c := app.Command("schema", "Print the inferred schema of CSV files.").Action(cmd.run)
	cmd.files = c.Arg("file", "The files to inspect.").Required().ExistingFiles()
}

func (cmd *schemaCommand) run(_ *kingpin.ParseContext) error {
	for _, name := range *cmd.files {
		fi, err := os.Stat(name)
		if err != nil {
			return fmt.Errorf("failed to read fileinfo: %w", err)
		}
		src, err := scan.NewCSVFile(name, types.Schema{}, scan.CSVOptions{})
		if err != nil {
			return err
		}
		schema, err := src.Schema()
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", name, humanize.Bytes(uint64(fi.Size())))
		for _, f := range schema.Fields {
			fmt.Printf("\t%s\n", f)
		}
	}
	return nil
}

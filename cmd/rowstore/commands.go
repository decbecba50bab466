package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/rowstore/formats"
	"github.com/arthur-debert/rowstore/rowstore/codec"
	"github.com/arthur-debert/rowstore/rowstore/store"
)

func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.tablesCommand(),
		cli.lsCommand(),
		cli.showCommand(),
		cli.exportCommand(),
		cli.rmCommand(),
		cli.counterCommand(),
	)
}

func (cli *CLI) tablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cli.openStore()
			if err != nil {
				return err
			}
			names, err := s.Tables()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cli.out, name)
			}
			return nil
		},
	}
}

func (cli *CLI) lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <table>",
		Short: "List the row IDs of a table and its counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cli.openDir(args[0])
			if err != nil {
				return err
			}
			ids, err := dir.IDs()
			if err != nil {
				return err
			}
			current, err := dir.Counter().Current()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cli.out, id)
			}
			fmt.Fprintf(cli.out, "%d rows, counter at %d\n", len(ids), current)
			return nil
		},
	}
}

func (cli *CLI) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <table> <id>",
		Short: "Render one row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.format()
			if err != nil {
				return err
			}
			dir, err := cli.openDir(args[0])
			if err != nil {
				return err
			}
			id, err := store.ParseID(args[1])
			if err != nil {
				return err
			}
			row, err := readRow(dir, id)
			if err != nil {
				return err
			}
			return format.Render(cli.out, []formats.Row{row})
		},
	}
}

func (cli *CLI) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <table>",
		Short: "Render every row of a table as one stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.format()
			if err != nil {
				return err
			}
			dir, err := cli.openDir(args[0])
			if err != nil {
				return err
			}
			ids, err := dir.IDs()
			if err != nil {
				return err
			}
			rows := make([]formats.Row, 0, len(ids))
			for _, id := range ids {
				row, err := readRow(dir, id)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
			cli.logger.Info("exporting rows", "table", dir.Name(), "rows", len(rows), "format", format.Name)
			return format.Render(cli.out, rows)
		},
	}
}

func (cli *CLI) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <table> <id>",
		Short: "Remove one row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cli.openDir(args[0])
			if err != nil {
				return err
			}
			id, err := store.ParseID(args[1])
			if err != nil {
				return err
			}
			if err := dir.Remove(id); err != nil {
				return err
			}
			cli.logger.Info("removed row", "table", dir.Name(), "id", id)
			return nil
		},
	}
}

func (cli *CLI) counterCommand() *cobra.Command {
	var next bool
	cmd := &cobra.Command{
		Use:   "counter <table>",
		Short: "Print the highest allocated ID of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cli.openDir(args[0])
			if err != nil {
				return err
			}
			var value int64
			if next {
				value, err = dir.Counter().Next()
			} else {
				value, err = dir.Counter().Current()
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cli.out, value)
			return nil
		},
	}
	cmd.Flags().BoolVar(&next, "next", false, "allocate and print a new ID")
	return cmd
}

func (cli *CLI) openDir(table string) (*store.Dir, error) {
	s, err := cli.openStore()
	if err != nil {
		return nil, err
	}
	return s.Dir(table)
}

// readRow reads and parses a row document without knowing its Go type
func readRow(dir *store.Dir, id int64) (formats.Row, error) {
	data, err := dir.Read(id)
	if err != nil {
		return formats.Row{}, err
	}
	rec, err := codec.DecodeDocument(bytes.NewReader(data))
	if err != nil {
		return formats.Row{}, fmt.Errorf("row %s/%d: %w", dir.Name(), id, err)
	}
	return formats.Row{Table: dir.Name(), ID: id, Record: rec}, nil
}

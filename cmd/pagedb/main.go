// Command pagedb inspects and maintains a page database file.
//
//	pagedb -db data.db [-config pagedb.ini] tables
//	pagedb -db data.db schema users
//	pagedb -db data.db scan users
//	pagedb -db data.db scan users name=Ann
//	pagedb -db data.db stats
//	pagedb -db data.db checkpoint
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"govetachun/go-page-db/internal/config"
	"govetachun/go-page-db/internal/database"
	"govetachun/go-page-db/internal/logger"
	"govetachun/go-page-db/internal/record"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pagedb: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pagedb", flag.ContinueOnError)
	fs.SetOutput(out)
	dbPath := fs.String("db", "", "database file")
	cfgPath := fs.String("config", "", "ini configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New("-db is required")
	}
	if fs.NArg() == 0 {
		return errors.New("missing command: tables | schema <table> | scan <table> [col=value] | stats | checkpoint")
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}
	if err := logger.InitLogger(logger.LogConfig{
		LogLevel:     cfg.LogLevel,
		InfoLogPath:  cfg.InfoLogPath,
		ErrorLogPath: cfg.ErrorLogPath,
	}); err != nil {
		return err
	}

	db, err := database.Open(*dbPath, cfg)
	if err != nil {
		return errors.Wrapf(err, "open %s", *dbPath)
	}
	defer db.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "tables":
		for _, name := range db.ListTables() {
			fmt.Fprintln(out, name)
		}
		return nil
	case "schema":
		if len(rest) != 1 {
			return errors.New("usage: schema <table>")
		}
		t, err := db.GetTable(rest[0])
		if err != nil {
			return err
		}
		return printSchema(out, t)
	case "scan":
		if len(rest) != 1 && len(rest) != 2 {
			return errors.New("usage: scan <table> [col=value]")
		}
		t, err := db.GetTable(rest[0])
		if err != nil {
			return err
		}
		filter := ""
		if len(rest) == 2 {
			filter = rest[1]
		}
		return scanTable(out, t, filter)
	case "stats":
		return printStats(out, db)
	case "checkpoint":
		stats, err := db.Checkpoint()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "folded %d pages, pruned %d versions, log reset: %t\n",
			stats.PagesFolded, stats.VersionsPruned, stats.LogReset)
		return nil
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func printSchema(out io.Writer, t *database.Table) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tTYPE\tKEY")
	for _, col := range t.Schema().Columns {
		key := ""
		switch {
		case col.PrimaryKey:
			key = "primary"
		case col.Unique:
			key = "unique"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", col.Name, col.Type, key)
	}
	return w.Flush()
}

// scanTable prints the table's live rows, optionally only those matching a
// col=value filter. The value is parsed with the column's type.
func scanTable(out io.Writer, t *database.Table, filter string) error {
	var rows []record.Row
	var err error
	if filter == "" {
		rows, err = t.Select()
	} else {
		col, raw, ok := strings.Cut(filter, "=")
		if !ok {
			return errors.Errorf("filter %q is not col=value", filter)
		}
		schema := t.Schema()
		column, found := schema.Column(col)
		if !found {
			return errors.Errorf("table %s has no column %s", t.Name(), col)
		}
		val, perr := record.ParseValue(column.Type, raw)
		if perr != nil {
			return errors.Wrapf(perr, "filter %s", col)
		}
		rows, err = t.SelectWhere(col, val)
	}
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintln(out, row)
	}
	fmt.Fprintf(out, "(%d rows)\n", len(rows))
	return nil
}

func printStats(out io.Writer, db *database.Database) error {
	st := db.Stats()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "path\t%s\n", st.Path)
	fmt.Fprintf(w, "tables\t%d\n", st.Tables)
	fmt.Fprintf(w, "next page\t%d\n", st.NextPage)
	fmt.Fprintf(w, "committed seq\t%d\n", st.Store.CommittedSeq)
	fmt.Fprintf(w, "base pages\t%d\n", st.Store.BasePages)
	fmt.Fprintf(w, "log bytes\t%d\n", st.Store.LogBytes)
	fmt.Fprintf(w, "log versions\t%d\n", st.Store.LogVersions)
	fmt.Fprintf(w, "checkpoints\t%d\n", st.Txn.Checkpoints)
	fmt.Fprintf(w, "writer\t%s\n", st.Txn.Writer)

	names := db.ListTables()
	sort.Strings(names)
	for _, name := range names {
		t, err := db.GetTable(name)
		if err != nil {
			return err
		}
		ts := t.Stats()
		fmt.Fprintf(w, "table %s\tinserts=%d deletes=%d updates=%d corrupt=%d\n",
			name, ts.Inserts, ts.Deletes, ts.Updates, ts.CorruptPages)
	}
	return w.Flush()
}

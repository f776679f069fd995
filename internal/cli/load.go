package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/seedbed/internal/dataset"
	"github.com/roach88/seedbed/internal/loader"
	"github.com/roach88/seedbed/internal/sqlstore"
)

// LoadResult holds the outcome of a load command.
type LoadResult struct {
	Database string   `json:"database"`
	Datasets []string `json:"datasets"`
	Rows     int      `json:"rows"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath       string
		createTables bool
	)

	cmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Load dataset definitions into a SQLite database",
		Long: `Load dataset definitions into a SQLite database, dependencies
first, inside a single transaction. A failing row rolls the whole load
back so the database is never left partially seeded.

Each dataset loads into the table named by its storable field, or by
its name with the Data suffix trimmed and converted to snake case.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], dbPath, createTables, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (required)")
	cmd.Flags().BoolVar(&createTables, "create-tables", false, "create missing tables from the definitions")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLoad(opts *RootOptions, path, dbPath string, createTables bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	sets, err := LoadDefinitions(path)
	if err != nil {
		return outputDefError(formatter, err)
	}

	store, err := sqlstore.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer store.Close()

	ctx := cmd.Context()
	env := loader.MapEnv{}
	for _, ds := range sets {
		table := storableName(ds)
		if _, ok := env[table]; ok {
			continue
		}
		if createTables {
			created, err := store.CreateTable(ctx, table, tableColumns(ds)...)
			if err != nil {
				_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
				return NewExitError(ExitCommandError, err.Error())
			}
			env[table] = created
			formatter.VerboseLog("ensured table %s", table)
		} else {
			env[table] = &sqlstore.Table{Name: table}
		}
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	eng := loader.New(store,
		loader.WithEnvironment(env),
		loader.WithStyle(defaultStyle),
		loader.WithLogger(logger),
	)
	if err := eng.Load(ctx, sets...); err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	result := LoadResult{Database: dbPath}
	for _, ds := range sets {
		result.Datasets = append(result.Datasets, ds.Name())
		result.Rows += len(ds.Rows())
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ loaded %d row(s) from %d dataset(s) into %s\n",
		result.Rows, len(result.Datasets), dbPath)
	return nil
}

// tableColumns collects every column any row of the dataset mentions,
// in first-seen order. The generated table gets an id column on top.
func tableColumns(ds *dataset.Dataset) []string {
	var cols []string
	seen := map[string]bool{"id": true}
	for _, entry := range ds.Rows() {
		for _, name := range entry.Row.Columns() {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	return cols
}

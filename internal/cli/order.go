package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seedbed/internal/dataset"
	"github.com/roach88/seedbed/internal/loader"
	"github.com/roach88/seedbed/internal/style"
)

// defaultStyle derives table names from dataset names: the Data suffix
// is trimmed and the rest converted to snake case, so AuthorData maps
// to the author table unless a definition names its storable.
var defaultStyle = style.Chain{style.NamedData(), style.CamelToUnder{}}

func storableName(ds *dataset.Dataset) string {
	if name := ds.StorableName(); name != "" {
		return name
	}
	return defaultStyle.StorableName(ds.Name())
}

// OrderEntry is one dataset in the computed load order.
type OrderEntry struct {
	Dataset  string `json:"dataset"`
	Level    int    `json:"level"`
	Storable string `json:"storable"`
}

// OrderResult holds the computed load and unload orders.
type OrderResult struct {
	Load   []OrderEntry `json:"load"`
	Unload []string     `json:"unload"`
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order <path>",
		Short: "Print the load and unload order for definitions",
		Long: `Print the order datasets would load and unload in, without
touching a database. Dependencies load before their dependents; unload
runs the other way, so nothing is removed while something still
referencing it remains.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(rootOpts, args[0], cmd)
		},
	}
}

func runOrder(opts *RootOptions, path string, cmd *cobra.Command) error {
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

	plan, err := loader.Plan(sets...)
	if err != nil {
		return outputDefError(formatter, &DefError{ErrCodeCycle, err.Error()})
	}

	result := OrderResult{}
	for _, entry := range plan.Load {
		result.Load = append(result.Load, OrderEntry{
			Dataset:  entry.Dataset.Name(),
			Level:    entry.Level,
			Storable: storableName(entry.Dataset),
		})
	}
	for _, ds := range plan.Unload {
		result.Unload = append(result.Unload, ds.Name())
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "load order:")
	for i, entry := range result.Load {
		fmt.Fprintf(formatter.Writer, "  %d. %s (level %d) -> %s\n",
			i+1, entry.Dataset, entry.Level, entry.Storable)
	}
	fmt.Fprintln(formatter.Writer, "unload order:")
	for i, name := range result.Unload {
		fmt.Fprintf(formatter.Writer, "  %d. %s\n", i+1, name)
	}
	return nil
}

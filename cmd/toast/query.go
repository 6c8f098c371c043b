package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/output"
)

// queryOptions are the filter and output flags shared by list and history.
type queryOptions struct {
	filter    string
	search    string
	limit     int
	sortBy    string
	sortOrder string

	format   string
	field    string
	template string
}

func (q *queryOptions) register(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringVar(&q.filter, "filter", "",
		"Filter expression (e.g. kind=error,title~deploy,created>1h)")
	cmd.Flags().StringVarP(&q.search, "search", "s", "",
		"Search in title and body")
	cmd.Flags().IntVarP(&q.limit, "limit", "n", 0,
		"Maximum number of toasts to show (0=unlimited)")
	cmd.Flags().StringVar(&q.sortBy, "sort", "",
		"Sort by field (created, kind, title, duration)")
	cmd.Flags().StringVar(&q.sortOrder, "order", "desc",
		"Sort order (asc, desc)")

	var formats []string
	for _, f := range output.FormatTypes() {
		formats = append(formats, string(f))
	}
	cmd.Flags().StringVarP(&q.format, "output", "o", defaultFormat,
		"Output format ("+strings.Join(formats, ", ")+")")
	cmd.Flags().StringVar(&q.field, "field", "",
		"Output a single field of the selected toast (id, kind, title, body, state, reason, all)")
	cmd.Flags().StringVar(&q.template, "template", "",
		"Go template for plain/dmenu output, or the name of a configured template")
}

// apply filters, searches, sorts and limits rows.
func (q *queryOptions) apply(rows []output.Row, now time.Time) ([]output.Row, error) {
	expr, err := core.ParseFilter(q.filter, now)
	if err != nil {
		return nil, err
	}
	rows = core.FilterWithExpr(rows, expr)
	rows = core.Search(rows, q.search)
	if q.sortBy != "" {
		core.Sort(rows, core.SortOptions{
			Field: core.ParseSortField(q.sortBy),
			Order: core.ParseSortOrder(q.sortOrder),
		})
	}
	return core.Filter(rows, core.FilterOptions{Limit: q.limit}, now), nil
}

// print writes rows, or a single row when args select one by 1-based index
// or id.
func (q *queryOptions) print(w io.Writer, cfg *config.Config, rows []output.Row, args []string, now time.Time) error {
	if len(args) > 0 {
		r := lookup(rows, args[0])
		if r == nil {
			return fmt.Errorf("no toast matches %q", args[0])
		}
		if q.field != "" {
			_, err := fmt.Fprintln(w, output.FormatField(*r, q.field))
			return err
		}
		rows = []output.Row{*r}
	}

	format := output.FormatType(q.format)
	opts := output.DefaultFormatterOptions()
	opts.Now = now
	opts.Template = resolveTemplate(cfg, q.template, format)
	return output.NewFormatter(format, opts).Format(w, rows)
}

func lookup(rows []output.Row, arg string) *output.Row {
	if idx, err := strconv.Atoi(arg); err == nil {
		return core.LookupByIndex(rows, idx)
	}
	return core.LookupByID(rows, arg)
}

// resolveTemplate picks the template for format. A name configured under
// [templates] wins over literal template text.
func resolveTemplate(cfg *config.Config, tmpl string, format output.FormatType) string {
	if tmpl != "" {
		if named := cfg.GetTemplate(tmpl); named != "" {
			return named
		}
		return tmpl
	}
	switch format {
	case output.FormatDmenu:
		return cfg.GetTemplate("dmenu")
	case output.FormatPlain:
		return cfg.GetTemplate("list")
	default:
		return ""
	}
}

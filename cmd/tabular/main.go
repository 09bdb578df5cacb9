// Command tabular creates, fills and queries tables described by a schema flag.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rzpsarthak13/tabular/internal/client"
	"github.com/rzpsarthak13/tabular/internal/database"
	"github.com/rzpsarthak13/tabular/internal/model"
	"github.com/rzpsarthak13/tabular/internal/registry"
	"github.com/rzpsarthak13/tabular/internal/schema"
)

var version = "0.1.0"

type globalFlags struct {
	configFile string
	driver     string
	logLevel   string
	table      string
	schema     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "tabular",
		Short: "Schema-driven table access for PostgreSQL",
		Long: `tabular maps a typed attribute list onto a PostgreSQL table.
The table layout is given with --schema, for example:

  tabular --table people --schema name:string,age:integer create
  tabular --table people --schema name:string,age:integer insert --row '["Alice",30]'
  tabular --table people --schema name:string,age:integer select --where 'age >= 30'`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Path to a YAML or JSON config file (default: TABULAR_* environment variables)")
	pf.StringVar(&g.driver, "driver", "", "Override database.type (postgres or memory)")
	pf.StringVar(&g.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	pf.StringVar(&g.table, "table", "", "Table name")
	pf.StringVar(&g.schema, "schema", "", "Attribute list as name:type pairs, e.g. name:string,age:integer,scores:int[]")

	root.AddCommand(
		newCreateCmd(g),
		newDropCmd(g),
		newInsertCmd(g),
		newSelectCmd(g),
		newStatementCmd(g),
		newDescribeCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "tabular v%s\n", version)
				fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			},
		},
	)
	return root
}

// session is one command's client and model.
type session struct {
	client *client.ClientImpl
	model  *model.Model
	schema *schema.Schema
}

func (s *session) Close() error { return s.client.Close() }

func loadConfig(g *globalFlags) (*registry.ConfigManager, error) {
	cm := registry.NewConfigManager()
	var err error
	if g.configFile != "" {
		err = cm.LoadFromFile(g.configFile)
	} else {
		err = cm.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}

	cfg := cm.GetConfig()
	if g.driver != "" {
		cfg.Database.Type = g.driver
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cm, nil
}

func attributes(fields []field) ([]schema.Attribute, error) {
	catalog := schema.DefaultCatalog()
	attrs := make([]schema.Attribute, 0, len(fields))
	for _, f := range fields {
		col, err := catalog.NewColumn(f.Type)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, schema.Attr(f.Name, f.Type, col))
	}
	return attrs, nil
}

func open(ctx context.Context, g *globalFlags, cols []string) (*session, error) {
	if g.table == "" {
		return nil, errors.New("--table is required")
	}
	fields, err := parseSchema(g.schema)
	if err != nil {
		return nil, err
	}
	if fields, err = project(fields, cols); err != nil {
		return nil, err
	}
	attrs, err := attributes(fields)
	if err != nil {
		return nil, err
	}

	cm, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	c, err := client.NewFromConfigManager(ctx, cm)
	if err != nil {
		return nil, err
	}
	m, err := c.NewModel(ctx, g.table, attrs...)
	if err != nil {
		return nil, errors.Join(err, c.Close())
	}
	return &session{client: c, model: m, schema: m.Schema()}, nil
}

func withSession(g *globalFlags, cols func() []string, fn func(cmd *cobra.Command, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		var c []string
		if cols != nil {
			c = cols()
		}
		s, err := open(cmd.Context(), g, c)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, s.Close()) }()
		return fn(cmd, s)
	}
}

func newCreateCmd(g *globalFlags) *cobra.Command {
	var ifNotExists bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the table",
		RunE: withSession(g, nil, func(cmd *cobra.Command, s *session) error {
			if ifNotExists {
				return s.model.CreateIfNotExists(cmd.Context())
			}
			return s.model.Create(cmd.Context())
		}),
	}
	cmd.Flags().BoolVar(&ifNotExists, "if-not-exists", false, "Do nothing when the table already exists")
	return cmd
}

func newDropCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop the table",
		RunE: withSession(g, nil, func(cmd *cobra.Command, s *session) error {
			return s.model.Drop(cmd.Context())
		}),
	}
}

func newInsertCmd(g *globalFlags) *cobra.Command {
	var rows []string
	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert rows given as JSON arrays",
		RunE: withSession(g, nil, func(cmd *cobra.Command, s *session) error {
			if len(rows) == 0 {
				return errors.New("at least one --row is required")
			}
			tuples := make([][]any, 0, len(rows))
			for _, r := range rows {
				row, err := parseRow(r)
				if err != nil {
					return err
				}
				tuples = append(tuples, row)
			}
			if err := s.model.Insert(cmd.Context(), tuples); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d rows into %s\n", len(tuples), s.model.Tablename())
			return nil
		}),
	}
	cmd.Flags().StringArrayVar(&rows, "row", nil, `Row as a JSON array, e.g. '["Alice",30]' (repeatable)`)
	return cmd
}

// queryFlags are shared by select and statement.
type queryFlags struct {
	columns []string
	where   []string
	any     bool
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&q.columns, "columns", nil, "Columns to read (default: every --schema column)")
	cmd.Flags().StringArrayVar(&q.where, "where", nil, "Predicate such as 'age >= 30' (repeatable)")
	cmd.Flags().BoolVar(&q.any, "any", false, "Join predicates with OR instead of AND")
}

func (q *queryFlags) build(m *model.Model) error {
	preds := make([]predicate, 0, len(q.where))
	for _, w := range q.where {
		p, err := parseWhere(w)
		if err != nil {
			return err
		}
		preds = append(preds, p)
	}

	b := m.BuildQuery().Select(m.Schema().Names()...)
	for i, p := range preds {
		if i > 0 {
			if q.any {
				b.Or()
			} else {
				b.And()
			}
		}
		b.Where(p.Column, p.Operator, p.Value)
	}
	return b.Err()
}

func newSelectCmd(g *globalFlags) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Read rows and print them as a table",
		RunE: withSession(g, func() []string { return q.columns }, func(cmd *cobra.Command, s *session) error {
			if err := q.build(s.model); err != nil {
				return err
			}
			if err := s.model.BuildQuery().Run(cmd.Context()); err != nil {
				return err
			}
			return printRows(cmd.OutOrStdout(), s.schema)
		}),
	}
	q.register(cmd)
	return cmd
}

func newStatementCmd(g *globalFlags) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Print the SELECT statement select would run, without running it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.table == "" {
				return errors.New("--table is required")
			}
			fields, err := parseSchema(g.schema)
			if err != nil {
				return err
			}
			if fields, err = project(fields, q.columns); err != nil {
				return err
			}
			attrs, err := attributes(fields)
			if err != nil {
				return err
			}
			m, err := model.New(g.table, database.NewMemoryDatabase(nil), attrs)
			if err != nil {
				return err
			}
			if err := q.build(m); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.BuildQuery().Statement().Inline())
			return nil
		},
	}
	q.register(cmd)
	return cmd
}

func newDescribeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Show the table's columns as the database reports them",
		RunE: withSession(g, nil, func(cmd *cobra.Command, s *session) error {
			info, err := s.model.Describe(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tTYPE\tNULLABLE\tKEY")
			for _, c := range info.Columns {
				key := ""
				if c.PrimaryKey {
					key = "PRI"
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", c.Name, c.DataType, c.Nullable, key)
			}
			return w.Flush()
		}),
	}
}

func printRows(out io.Writer, s *schema.Schema) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(s.Names(), "\t")))
	for r := 0; r < s.Rows(); r++ {
		cells := make([]string, s.NumAttributes())
		for i := range cells {
			cells[i] = fmt.Sprint(s.Column(i).Value(r))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	fmt.Fprintf(w, "(%d rows)\n", s.Rows())
	return w.Flush()
}

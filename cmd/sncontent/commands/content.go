package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var (
		selectFields string
		expandFields string
		version      string
		params       []string
	)

	cmd := &cobra.Command{
		Use:   "get TARGET",
		Short: "Load a content item",
		Long:  "Load a single content item by path (/Root/...) or numeric id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}

			target.Select = splitList(selectFields)
			target.Expand = splitList(expandFields)
			target.Version = version

			req := &content.LoadContentRequest{EntityOptions: target}
			if err := applyParams(req, params); err != nil {
				return err
			}

			ctx := cmd.Context()

			repo, err := openRepository(ctx)
			if err != nil {
				return err
			}

			item, err := repo.LoadContent(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", args[0], err)
			}

			return outputContent(cmd, item)
		},
	}

	cmd.Flags().StringVar(&selectFields, "select", "", "comma separated fields to return")
	cmd.Flags().StringVar(&expandFields, "expand", "", "comma separated reference fields to expand")
	cmd.Flags().StringVar(&version, "version", "", "content version to load, e.g. lastmajor")
	cmd.Flags().StringArrayVar(&params, "param", nil, "extra query parameter as key=value (repeatable)")

	return cmd
}

// collectionFlags are shared by the commands returning content lists.
type collectionFlags struct {
	top          int
	skip         int
	orderBy      string
	selectFields string
	expandFields string
	count        bool
	params       []string
}

func (f *collectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.top, "top", constants.DefaultPageSize, "maximum number of items to return")
	cmd.Flags().IntVar(&f.skip, "skip", 0, "number of items to skip")
	cmd.Flags().StringVar(&f.orderBy, "orderby", "", "comma separated sort expressions, e.g. 'Name desc'")
	cmd.Flags().StringVar(&f.selectFields, "select", "", "comma separated fields to return")
	cmd.Flags().StringVar(&f.expandFields, "expand", "", "comma separated reference fields to expand")
	cmd.Flags().BoolVar(&f.count, "count", false, "include the total count of matching items")
	cmd.Flags().StringArrayVar(&f.params, "param", nil, "extra query parameter as key=value (repeatable)")
}

func (f *collectionFlags) apply(entity *content.EntityOptions, query *content.QueryOptions) {
	entity.Select = splitList(f.selectFields)
	entity.Expand = splitList(f.expandFields)

	query.Top = f.top
	query.Skip = f.skip
	query.OrderBy = splitList(f.orderBy)

	if f.count {
		query.InlineCount = content.InlineCountAllPages
	}
}

// columns returns the table columns for the list, following --select.
func (f *collectionFlags) columns() []string {
	return splitList(f.selectFields)
}

// NewChildrenCommand creates the children command.
func NewChildrenCommand() *cobra.Command {
	var (
		flags  collectionFlags
		filter string
		query  string
	)

	cmd := &cobra.Command{
		Use:     "children TARGET",
		Aliases: []string{"ls"},
		Short:   "List the children of a container",
		Long:    "List the children of a container addressed by path, optionally filtered with an OData filter or a content query",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}

			req := &content.LoadCollectionRequest{
				EntityOptions:  target,
				ContentQuery:   query,
				ChildrenFilter: filter,
			}
			flags.apply(&req.EntityOptions, &req.QueryOptions)

			if err := applyParams(req, flags.params); err != nil {
				return err
			}

			ctx := cmd.Context()

			repo, err := openRepository(ctx)
			if err != nil {
				return err
			}

			list, err := repo.LoadCollection(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", args[0], err)
			}

			return outputContentList(cmd, list, flags.columns())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&filter, "filter", "", "OData filter expression")
	cmd.Flags().StringVar(&query, "query", "", "content query applied to the children")

	return cmd
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	var (
		flags collectionFlags
		path  string
	)

	cmd := &cobra.Command{
		Use:   "query QUERY",
		Short: "Run a content query",
		Long:  "Run a content query below a subtree (default /Root)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &content.QueryContentRequest{
				EntityOptions: content.EntityOptions{Path: path},
				ContentQuery:  args[0],
			}
			flags.apply(&req.EntityOptions, &req.QueryOptions)

			if err := applyParams(req, flags.params); err != nil {
				return err
			}

			ctx := cmd.Context()

			repo, err := openRepository(ctx)
			if err != nil {
				return err
			}

			list, err := repo.QueryContent(ctx, req)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			return outputContentList(cmd, list, flags.columns())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&path, "path", constants.RootPath, "subtree to search")

	return cmd
}

// NewCountCommand creates the count command.
func NewCountCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "count QUERY",
		Short: "Count the items a content query matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &content.QueryContentRequest{
				EntityOptions: content.EntityOptions{Path: path},
				ContentQuery:  args[0],
			}

			ctx := cmd.Context()

			repo, err := openRepository(ctx)
			if err != nil {
				return err
			}

			count, err := repo.QueryCount(ctx, req)
			if err != nil {
				return fmt.Errorf("count failed: %w", err)
			}

			switch viper.GetString("output") {
			case constants.FormatJSON, constants.FormatYAML:
				return writeStructured(cmd, map[string]int{"count": count})
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), count)

			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", constants.RootPath, "subtree to search")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var (
		permanent bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:     "delete TARGET",
		Aliases: []string{"rm"},
		Short:   "Delete a content item",
		Long:    "Delete a content item by path or id. Without --permanent the item goes to the trash.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}

			if !force && !confirm(cmd, fmt.Sprintf("Delete %s?", args[0])) {
				return ErrDeleteCancelled
			}

			ctx := cmd.Context()

			repo, err := openRepository(ctx)
			if err != nil {
				return err
			}

			if err := repo.DeleteContent(ctx, &content.ContentRequest{EntityOptions: target}, permanent); err != nil {
				return fmt.Errorf("failed to delete %s: %w", args[0], err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])

			return nil
		},
	}

	cmd.Flags().BoolVar(&permanent, "permanent", false, "delete permanently instead of moving to the trash")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")

	return cmd
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand() *cobra.Command {
	var (
		data   string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "invoke TARGET OPERATION",
		Short: "Invoke an OData operation on a content item",
		Long: `Invoke an OData operation on a content item.

Without --data the operation is called as a function (GET). With --data the
JSON object is posted as the action body.`,
		Args: cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}

			req := &content.OperationRequest{
				EntityOptions: target,
				OperationName: args[1],
			}

			if data != "" {
				var body map[string]any
				if err := json.Unmarshal([]byte(data), &body); err != nil {
					return fmt.Errorf("%w: %w", ErrInvalidPostData, err)
				}

				req.PostData = body
			}

			if err := applyParams(req, params); err != nil {
				return err
			}

			ctx := cmd.Context()

			repo, err := openRepository(ctx)
			if err != nil {
				return err
			}

			result, err := repo.Invoke(ctx, req)
			if err != nil {
				return err
			}

			return outputRaw(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON object sent as the request body")
	cmd.Flags().StringArrayVar(&params, "param", nil, "extra query parameter as key=value (repeatable)")

	return cmd
}

// outputRaw prints an operation result. Table output falls back to JSON
// since results have no fixed shape.
func outputRaw(cmd *cobra.Command, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(raw))

		return nil //nolint:nilerr // non-JSON results are printed as is
	}

	if viper.GetString("output") == constants.FormatYAML {
		return writeStructured(cmd, value)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

	return encoder.Encode(value)
}

func confirm(cmd *cobra.Command, prompt string) bool {
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", prompt)

	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// stdinFile is the file secrets and confirmations are read from.
var stdinFile = os.Stdin

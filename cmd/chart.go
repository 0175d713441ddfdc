// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"supersetctl/cli/internal/backend"
	"supersetctl/cli/internal/batch"
	"supersetctl/cli/internal/charts"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/resource"
	"supersetctl/cli/internal/toolkit"
)

var (
	chartSpec      charts.Spec
	chartType      string
	chartMetric    charts.MetricSpec
	chartsFilePath string
	chartsOwner    string
	chartsPattern  string
	chartsTable    string
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Create a single chart",
}

var chartCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a chart unless one with the same name, dataset and owner exists",
	Example: `  supersetctl chart create --name "Orders by region" --table orders --type pie --groupby region
  supersetctl chart create --name "Revenue" --table orders --type big_number_total --metric-column amount --aggregate SUM`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := chartSpec
		spec.Type = charts.Kind(chartType)
		if chartMetric.Column != "" || chartMetric.SQL != "" {
			m := chartMetric
			spec.Metric = &m
		}
		if err := spec.Validate(); err != nil {
			return err
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		s, release, err := a.session(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		var out resource.Outcome
		err = withSpinner("Ensuring chart "+spec.Name, func() error {
			out, err = s.EnsureChart(cmd.Context(), spec, spec.Owner)
			return err
		})
		if err != nil {
			return err
		}
		verb := "exists"
		if out.Created {
			verb = "created"
		}
		pterm.Success.Printf("Chart %q %s (id %d)\n", spec.Name, verb, out.ID)
		dryRunBanner(s.DryRun())
		return nil
	},
}

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Work with many charts at once",
}

var chartsBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Create every chart in a YAML definition file",
	Long: `Creates every chart listed in the file. Charts that already exist are reused.
A failing chart does not stop the others; a lost connection stops the batch.

  owner: alice
  charts:
    - name: Orders
      table: orders
      type: table
    - name: Orders by region
      table: orders
      type: pie
      groupby: [region]`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var def chartsFile
		if err := readYAML(chartsFilePath, &def); err != nil {
			return err
		}
		if chartsOwner != "" {
			def.Owner = chartsOwner
		}
		if len(def.Charts) == 0 {
			return apperr.New(apperr.Validation, "the definition lists no charts")
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		s, release, err := a.session(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		var runErr error
		var res batch.Result
		_ = withSpinner("Creating charts", func() error {
			res, runErr = a.orchestrator(s).CreateChartsBatch(cmd.Context(), def.Charts, def.Owner, flagDryRun)
			return nil
		})
		finishBatch(a, s, "charts batch", res)
		if runErr != nil {
			return runErr
		}
		return failedItems(res)
	},
}

var chartsDeleteCmd = &cobra.Command{
	Use:   "delete [ID...]",
	Short: "Delete charts by id or by name pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 0) == (chartsPattern == "") {
			return apperr.New(apperr.Validation, "give chart ids or --pattern, not both")
		}
		ids := make([]int, len(args))
		for i, arg := range args {
			id, err := strconv.Atoi(arg)
			if err != nil || id <= 0 {
				return apperr.Newf(apperr.Validation, "chart id must be a positive number, got %q", arg)
			}
			ids[i] = id
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		s, release, err := a.session(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		o := a.orchestrator(s)
		var res batch.Result
		if chartsPattern != "" {
			res, err = o.DeleteByNamePattern(cmd.Context(), backend.KindChart, chartsPattern, flagDryRun)
		} else {
			res, err = o.DeleteChartsBatch(cmd.Context(), ids, flagDryRun)
		}
		finishBatch(a, s, "charts delete", res)
		if err != nil {
			return err
		}
		return failedItems(res)
	},
}

var chartsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List charts, optionally by owner or table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		s, release, err := a.session(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		found, err := s.Charts(cmd.Context(), toolkit.Query{Owner: chartsOwner, Table: chartsTable, Schema: datasetSchema})
		if err != nil {
			return err
		}
		renderSummaries("Charts", found)
		return nil
	},
}

func renderSummaries(title string, found []backend.Summary) {
	data := pterm.TableData{{"Id", "Name", "Type", "Owners"}}
	for _, r := range found {
		owners := make([]string, len(r.OwnerIDs))
		for i, id := range r.OwnerIDs {
			owners[i] = strconv.Itoa(id)
		}
		data = append(data, []string{strconv.Itoa(r.ID), r.Name, r.VizType, strings.Join(owners, ",")})
	}
	pterm.DefaultSection.Printf("%s (%d)\n", title, len(found))
	if len(found) > 0 {
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
}

func init() {
	f := chartCreateCmd.Flags()
	f.StringVar(&chartSpec.Name, "name", "", "chart name")
	f.StringVar(&chartSpec.Table, "table", "", "source table")
	f.StringVar(&chartSpec.Schema, "schema", "", "table schema (default from config)")
	f.StringVar(&chartType, "type", string(charts.KindTable), "chart type: "+kindList())
	f.StringVar(&chartSpec.Owner, "owner", "", "owning username (default: yourself)")
	f.StringSliceVar(&chartSpec.Columns, "columns", nil, "columns for table charts (default: all dataset columns)")
	f.StringSliceVar(&chartSpec.GroupBy, "groupby", nil, "group-by columns for pie and bar charts")
	f.StringVar(&chartSpec.Column, "column", "", "column for histograms")
	f.IntVar(&chartSpec.RowLimit, "row-limit", 0, "row limit")
	f.BoolVar(&chartSpec.IncludeSearch, "include-search", false, "show the search box on table charts")
	f.BoolVar(&chartSpec.TableFilter, "table-filter", false, "let table charts emit dashboard filters")
	f.IntVar(&chartSpec.Bins, "bins", 0, "histogram bins")
	f.StringVar(&chartMetric.Column, "metric-column", "", "metric column (default metric: COUNT(*))")
	f.StringVar(&chartMetric.Aggregate, "aggregate", "", "metric aggregate: COUNT, COUNT_DISTINCT, SUM, AVG, MIN, MAX")
	f.StringVar(&chartMetric.SQL, "metric-sql", "", "custom SQL metric expression")
	f.StringVar(&chartMetric.Label, "metric-label", "", "metric label")
	chartCmd.AddCommand(chartCreateCmd)

	chartsBatchCmd.Flags().StringVarP(&chartsFilePath, "file", "f", "", "YAML definition file, - for stdin")
	chartsBatchCmd.Flags().StringVar(&chartsOwner, "owner", "", "owner for charts that name none (overrides the file)")
	chartsDeleteCmd.Flags().StringVar(&chartsPattern, "pattern", "", "delete every chart whose name contains this text (case-sensitive)")
	chartsListCmd.Flags().StringVar(&chartsOwner, "owner", "", "only charts owned by this username")
	chartsListCmd.Flags().StringVar(&chartsTable, "table", "", "only charts on this table")
	chartsListCmd.Flags().StringVar(&datasetSchema, "schema", "", "schema of --table")
	chartsCmd.AddCommand(chartsBatchCmd, chartsDeleteCmd, chartsListCmd)

	rootCmd.AddCommand(chartCmd, chartsCmd)
}

func kindList() string {
	kinds := charts.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tedtam/fieldops/internal/bridge"
	"github.com/tedtam/fieldops/internal/cache"
	"github.com/tedtam/fieldops/internal/store"
)

// --- customers ---

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Manage customer accounts",
}

var customersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customer accounts",
	Long: `List customer accounts, optionally filtered.

Examples:
  fieldops customers list
  fieldops customers list --search สมชาย
  fieldops customers list --work-group 6090 --status ไม่จบ --sort principal`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}

		query := listQuery(cmd)
		path := "/api/customers"
		if query != "" {
			path += "?" + query
		}

		var rows []store.Customer
		if err := c.GetJSON(cmd.Context(), path, &rows); err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tACCOUNT\tGROUP\tSTATUS\tTEAM\tPRINCIPAL")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
				shortID(r.ID), r.Name, r.AccountNumber, r.WorkGroup, r.Status, r.Team, r.Principal)
		}
		tw.Flush()
		printStatus("Total", "%d", len(rows))
		return nil
	},
}

var customersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one customer account as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		rec, err := c.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var customersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a customer account",
	Long: `Create a customer account.

Examples:
  fieldops customers create --name "สมชาย ใจดี" --account 1-234-56789 --work-group 6090
  fieldops customers create --json '{"name":"สมชาย","accountNumber":"1-234-56789"}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var rec store.Customer

		if raw, _ := cmd.Flags().GetString("json"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				return fmt.Errorf("invalid JSON: %w", err)
			}
		} else {
			rec.Name, _ = cmd.Flags().GetString("name")
			rec.AccountNumber, _ = cmd.Flags().GetString("account")
			rec.WorkGroup, _ = cmd.Flags().GetString("work-group")
			rec.Team, _ = cmd.Flags().GetString("team")
			rec.Branch, _ = cmd.Flags().GetString("branch")
			rec.Principal, _ = cmd.Flags().GetFloat64("principal")
			rec.Latitude, _ = cmd.Flags().GetFloat64("lat")
			rec.Longitude, _ = cmd.Flags().GetFloat64("lng")
		}

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		created, err := c.Create(cmd.Context(), rec)
		if err != nil {
			return err
		}
		printSuccess("Created %s (%s)", created.Name, created.ID)
		return nil
	},
}

var customersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of a customer account",
	Long: `Update fields of a customer account. Fields absent from the JSON
keep their current values.

Example:
  fieldops customers update a1b2c3 --json '{"status":"จบ","resus":"CURED"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("json")
		if raw == "" {
			return fmt.Errorf("--json is required")
		}
		if !json.Valid([]byte(raw)) {
			return fmt.Errorf("invalid JSON")
		}

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		// Patch sends the document as-is so absent fields stay untouched.
		updated, err := c.Patch(cmd.Context(), args[0], json.RawMessage(raw))
		if err != nil {
			return err
		}
		printSuccess("Updated %s", updated.ID)
		return nil
	},
}

var customersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a customer account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		removed, err := c.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			printWarning("No account with id %s", args[0])
			return nil
		}
		printSuccess("Deleted %s", args[0])
		return nil
	},
}

var customersNearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List accounts nearest to a position",
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		limit, _ := cmd.Flags().GetInt("limit")

		c, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/api/customers/nearby?lat=%g&lng=%g&limit=%d", lat, lng, limit)
		var rows []struct {
			Customer store.Customer `json:"customer"`
			Distance float64        `json:"distanceKm"`
		}
		if err := c.GetJSON(cmd.Context(), path, &rows); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KM\tNAME\tACCOUNT\tADDRESS")
		for _, r := range rows {
			fmt.Fprintf(tw, "%.1f\t%s\t%s\t%s\n", r.Distance, r.Customer.Name, r.Customer.AccountNumber, r.Customer.Address)
		}
		return tw.Flush()
	},
}

var customersWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live change feed",
	Long: `Follow the live change feed: loads the collection into a local
cache, then prints every insert, update, and delete as it arrives.
Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mirror := cache.New()
		br := bridge.New(c, mirror, slog.Default())
		if err := br.Start(ctx); err != nil {
			return err
		}
		defer br.Stop()
		printStatus("Cached", "%d accounts", mirror.Len())

		sub := c.Subscribe(func(ev store.Event) {
			rec := ev.New
			if rec == nil {
				rec = ev.Old
			}
			if rec == nil {
				return
			}
			fmt.Printf("%s\t%s\t%s\n", ev.Type, rec.AccountNumber, rec.Name)
		})
		defer sub.Close()

		<-ctx.Done()
		return nil
	},
}

// --- import / export ---

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import customer accounts from a spreadsheet",
	Long: `Import customer accounts from an .xlsx workbook. Rows are matched
by account number: existing accounts are updated, new ones created.
When the same account number appears on several rows, the last row
wins.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening workbook: %w", err)
		}
		defer f.Close()

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		summary, err := c.Import(cmd.Context(), args[0], f)
		if err != nil {
			return err
		}

		printSuccess("Imported: %d created, %d updated", summary.Created, summary.Updated)
		if summary.DuplicatesInFile > 0 {
			printWarning("%d duplicate account numbers in file (last row kept)", summary.DuplicatesInFile)
		}
		if summary.Skipped > 0 {
			printWarning("%d rows skipped (missing name or account number)", summary.Skipped)
		}
		if summary.SimilarNames > 0 {
			printWarning("%d near-identical names, check for misspelled duplicates", summary.SimilarNames)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export customer accounts to a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		tmp, err := os.CreateTemp(".", "fieldops-export-*.xlsx")
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer os.Remove(tmp.Name())

		name, err := c.Export(cmd.Context(), listQuery(cmd), tmp)
		if err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}

		if out == "" {
			out = name
		}
		if err := os.Rename(tmp.Name(), out); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		printSuccess("Exported to %s", out)
		return nil
	},
}

// --- reports ---

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Performance and commission reports",
}

var reportsSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Persist today's per-team performance rollup",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		saved, err := c.SnapshotReports(cmd.Context(), date)
		if err != nil {
			return err
		}
		printSuccess("Saved %d report rows", len(saved))
		return nil
	},
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved performance reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")

		c, err := newAPIClient()
		if err != nil {
			return err
		}
		rows, err := c.ListReports(cmd.Context(), from, to)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tTEAM\tGROUP\tASSIGNED\tDONE\tCURED\tDR\tREPO")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				r.ReportDate, r.Team, r.WorkGroup, r.TotalAssigned, r.TotalCompleted, r.TotalCured, r.TotalDR, r.TotalRepo)
		}
		return tw.Flush()
	},
}

var reportsCommissionCmd = &cobra.Command{
	Use:   "commission",
	Short: "Show the per-team commission rollup",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		rows, err := c.CommissionSummaries(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TEAM\tEARNED\tOUTSTANDING")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\n", r.Team, r.Earned, r.Outstanding)
		}
		return tw.Flush()
	},
}

// listQuery turns the shared filter flags into an escaped query string.
func listQuery(cmd *cobra.Command) string {
	q := url.Values{}
	add := func(key, flag string) {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			q.Set(key, v)
		}
	}
	add("search", "search")
	add("workGroup", "work-group")
	add("branch", "branch")
	add("status", "status")
	add("cycleDay", "cycle-day")
	add("resus", "resus")
	add("team", "team")
	add("sort", "sort")
	add("order", "order")
	return q.Encode()
}

func filterFlags(cmd *cobra.Command) {
	cmd.Flags().String("search", "", "match name, account number, or hub code")
	cmd.Flags().String("work-group", "", "work group (6090 or NPL)")
	cmd.Flags().String("branch", "", "branch")
	cmd.Flags().String("status", "", "status (จบ or ไม่จบ)")
	cmd.Flags().String("cycle-day", "", "cycle day")
	cmd.Flags().String("resus", "", "case disposition (CURED, DR, REPO, ตบเด้ง)")
	cmd.Flags().String("team", "", "field team")
	cmd.Flags().String("sort", "", "sort field (name, principal, createdAt, ...)")
	cmd.Flags().String("order", "", "sort order (asc or desc)")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	filterFlags(customersListCmd)
	customersListCmd.Flags().Bool("json", false, "print full records as JSON")

	customersCreateCmd.Flags().String("name", "", "customer name")
	customersCreateCmd.Flags().String("account", "", "account number")
	customersCreateCmd.Flags().String("work-group", "", "work group (6090 or NPL)")
	customersCreateCmd.Flags().String("team", "", "field team")
	customersCreateCmd.Flags().String("branch", "", "branch")
	customersCreateCmd.Flags().Float64("principal", 0, "outstanding principal")
	customersCreateCmd.Flags().Float64("lat", 0, "latitude")
	customersCreateCmd.Flags().Float64("lng", 0, "longitude")
	customersCreateCmd.Flags().String("json", "", "full record as JSON instead of flags")

	customersUpdateCmd.Flags().String("json", "", "fields to change as JSON")

	customersNearbyCmd.Flags().Float64("lat", 0, "latitude (0 uses the default centroid)")
	customersNearbyCmd.Flags().Float64("lng", 0, "longitude (0 uses the default centroid)")
	customersNearbyCmd.Flags().Int("limit", 10, "maximum rows")

	filterFlags(exportCmd)
	exportCmd.Flags().String("output", "", "output path (default: server-suggested name)")

	reportsSnapshotCmd.Flags().String("date", "", "report date YYYY-MM-DD (default today)")
	reportsListCmd.Flags().String("from", "", "start date YYYY-MM-DD, inclusive")
	reportsListCmd.Flags().String("to", "", "end date YYYY-MM-DD, inclusive")

	customersCmd.AddCommand(customersListCmd)
	customersCmd.AddCommand(customersShowCmd)
	customersCmd.AddCommand(customersCreateCmd)
	customersCmd.AddCommand(customersUpdateCmd)
	customersCmd.AddCommand(customersDeleteCmd)
	customersCmd.AddCommand(customersNearbyCmd)
	customersCmd.AddCommand(customersWatchCmd)

	reportsCmd.AddCommand(reportsSnapshotCmd)
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsCommissionCmd)
}

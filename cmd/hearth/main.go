package main

import (
	"context"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ewhitmore/hearth/internal/compare"
	"github.com/ewhitmore/hearth/internal/config"
	"github.com/ewhitmore/hearth/internal/domain"
	"github.com/ewhitmore/hearth/internal/log"
	"github.com/ewhitmore/hearth/internal/reconcile"
	"github.com/ewhitmore/hearth/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	dbPath    string
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "hearth",
	Short: "Pension and mortgage projection tracker",
	Long:  "Tracks pension pots and mortgages, projects them month by month, and reconciles projections against confirmed actuals",
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "hearth %s (commit %s, built %s)\n", version, commit, date)
			if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
				fmt.Fprintln(os.Stdout, bi.Main.Path)
			}
		},
	}
}

// openStore opens the database named by --db, falling back to HEARTH_DB
// and then to hearth.db in the working directory.
func openStore() *storage.Store {
	path := dbPath
	if path == "" {
		path = os.Getenv("HEARTH_DB")
	}
	if path == "" {
		path = "hearth.db"
	}
	store, err := storage.New(path)
	if err != nil {
		stdlog.Fatal(err)
	}
	return store
}

func newManager(store *storage.Store) *reconcile.Manager {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, Component: log.ComponentApp})
	log.SetDefault(logger)
	return reconcile.NewManager(store, store,
		reconcile.WithLedger(store),
		reconcile.WithLogger(logger),
	)
}

func parseID(arg, what string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		stdlog.Fatalf("invalid %s %q", what, arg)
	}
	return id
}

func parseDecimal(arg, what string) decimal.Decimal {
	d, err := decimal.NewFromString(arg)
	if err != nil {
		stdlog.Fatalf("invalid %s %q", what, arg)
	}
	return d
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List instruments",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		all, _ := cmd.Flags().GetBool("all")
		instruments, err := store.Instruments(context.Background(), "", !all)
		if err != nil {
			stdlog.Fatal(err)
		}

		fmt.Printf("%-4s %-10s %-24s %-14s %-14s %s\n",
			"ID", "KIND", "NAME", "CURRENT", "PROJECTED", "ACTIVE")
		for _, inst := range instruments {
			projected := "-"
			if inst.ProjectedValue != nil {
				projected = inst.ProjectedValue.StringFixed(2)
			}
			fmt.Printf("%-4d %-10s %-24s %-14s %-14s %t\n",
				inst.ID, inst.Kind, inst.Name,
				inst.CurrentValue.StringFixed(2), projected, inst.IsActive)
		}
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a pension or mortgage instrument",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		kind, _ := cmd.Flags().GetString("kind")
		name, _ := cmd.Flags().GetString("name")
		value, _ := cmd.Flags().GetString("value")
		if name == "" || value == "" {
			stdlog.Fatal("--name and --value are required")
		}

		inst := &domain.Instrument{
			Name:         name,
			CurrentValue: parseDecimal(value, "value"),
			IsActive:     true,
		}
		switch domain.InstrumentKind(kind) {
		case domain.KindPension:
			inst.Kind = domain.KindPension
			inst.Person, _ = cmd.Flags().GetString("person")
			if contribution, _ := cmd.Flags().GetString("contribution"); contribution != "" {
				inst.MonthlyContribution = parseDecimal(contribution, "contribution")
			}
			if age, _ := cmd.Flags().GetInt("retirement-age"); age > 0 {
				inst.RetirementAge = &age
			}
		case domain.KindMortgage:
			inst.Kind = domain.KindMortgage
			inst.Property, _ = cmd.Flags().GetString("property")
			if payment, _ := cmd.Flags().GetString("payment"); payment != "" {
				inst.MonthlyPayment = parseDecimal(payment, "payment")
			}
			if rate, _ := cmd.Flags().GetString("rate"); rate != "" {
				inst.AnnualRate = parseDecimal(rate, "rate")
			}
			if overpay, _ := cmd.Flags().GetString("overpayment"); overpay != "" {
				inst.Overpayment = parseDecimal(overpay, "overpayment")
			}
			inst.PaymentDay, _ = cmd.Flags().GetInt("payment-day")
			if account, _ := cmd.Flags().GetInt64("account"); account > 0 {
				inst.AccountID = &account
			}
		default:
			stdlog.Fatalf("unknown kind %q: use pension or mortgage", kind)
		}

		if err := store.CreateInstrument(context.Background(), inst); err != nil {
			stdlog.Fatal(err)
		}
		fmt.Printf("Created %s %d: %s\n", inst.Kind, inst.ID, inst.Name)
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate [instrument-id]",
	Short: "Regenerate projections for one instrument",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()
		manager := newManager(store)

		scenario, _ := cmd.Flags().GetString("scenario")
		written, err := manager.Regenerate(context.Background(), parseID(args[0], "instrument id"), scenario)
		if err != nil {
			stdlog.Fatal(err)
		}
		fmt.Printf("Wrote %d projection rows\n", written)
	},
}

var regenerateAllCmd = &cobra.Command{
	Use:   "regenerate-all",
	Short: "Regenerate projections for every active instrument",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()
		manager := newManager(store)

		scenario, _ := cmd.Flags().GetString("scenario")
		written, err := manager.RegenerateAll(context.Background(), scenario)
		fmt.Printf("Wrote %d projection rows\n", written)
		if err != nil {
			stdlog.Fatal(err)
		}
	},
}

var recordCmd = &cobra.Command{
	Use:   "record [instrument-id] [date] [value]",
	Short: "Record an observed value, superseding any projection on that date",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()
		manager := newManager(store)

		reviewDate, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			stdlog.Fatalf("invalid date %q: use YYYY-MM-DD", args[1])
		}
		snap, err := manager.RecordActual(context.Background(),
			parseID(args[0], "instrument id"), reviewDate, parseDecimal(args[2], "value"))
		if err != nil {
			stdlog.Fatal(err)
		}
		fmt.Printf("Recorded actual %d for %s: %s\n",
			snap.ID, snap.ReviewDate.Format("2006-01-02"), snap.Value.StringFixed(2))
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm [instrument-id] [snapshot-id] [value]",
	Short: "Confirm a projection snapshot with its observed value",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()
		manager := newManager(store)

		snap, err := manager.Confirm(context.Background(),
			parseID(args[0], "instrument id"), parseID(args[1], "snapshot id"),
			parseDecimal(args[2], "value"))
		if err != nil {
			stdlog.Fatal(err)
		}
		fmt.Printf("Confirmed snapshot %d for %s: %s\n",
			snap.ID, snap.ReviewDate.Format("2006-01-02"), snap.Value.StringFixed(2))
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline [instrument-id]",
	Short: "Show merged actual and projected history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()
		manager := newManager(store)

		scenario, _ := cmd.Flags().GetString("scenario")
		rows, err := manager.Timeline(context.Background(), parseID(args[0], "instrument id"), scenario)
		if err != nil {
			stdlog.Fatal(err)
		}

		fmt.Printf("%-6s %-12s %-14s %-10s %-12s %s\n",
			"ID", "DATE", "VALUE", "GROWTH%", "TYPE", "SCENARIO")
		for _, snap := range rows {
			growth := "-"
			if snap.GrowthPercent != nil {
				growth = snap.GrowthPercent.StringFixed(2)
			}
			snapType := "actual"
			if snap.IsProjection {
				snapType = "projection"
			}
			fmt.Printf("%-6d %-12s %-14s %-10s %-12s %s\n",
				snap.ID, snap.ReviewDate.Format("2006-01-02"),
				snap.Value.StringFixed(2), growth, snapType, snap.Scenario)
		}
	},
}

var retirementCmd = &cobra.Command{
	Use:   "retirement [person]",
	Short: "Summarise projected retirement income",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()
		manager := newManager(store)

		person := ""
		if len(args) > 0 {
			person = args[0]
		}
		summary, err := manager.Retirement(context.Background(), person)
		if err != nil {
			stdlog.Fatal(err)
		}

		fmt.Println("RETIREMENT SUMMARY")
		fmt.Println("==================")
		for _, p := range summary.Pensions {
			fmt.Printf("%-24s %-10s current %-14s projected %s\n",
				p.Name, p.Person, p.CurrentValue.StringFixed(2), p.ProjectedValue.StringFixed(2))
		}
		fmt.Println()
		fmt.Printf("Total current value:    %s\n", summary.TotalCurrentValue.StringFixed(2))
		fmt.Printf("Total projected value:  %s\n", summary.TotalProjectedValue.StringFixed(2))
		fmt.Printf("Annual annuity:         %s\n", summary.TotalAnnuity.StringFixed(2))
		fmt.Printf("Government pension:     %s\n", summary.GovernmentPension.StringFixed(2))
		fmt.Printf("Total annual income:    %s\n", summary.TotalAnnualIncome.StringFixed(2))
		fmt.Printf("Total monthly income:   %s\n", summary.TotalMonthlyIncome.StringFixed(2))
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare [instrument-id]",
	Short: "Compare projection scenarios for one instrument",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openStore()
		defer store.Close()
		manager := newManager(store)

		inst, err := store.Instrument(ctx, parseID(args[0], "instrument id"))
		if err != nil {
			stdlog.Fatal(err)
		}

		scenarios, err := compareScenarios(ctx, cmd, store, inst)
		if err != nil {
			stdlog.Fatal(err)
		}

		months, _ := cmd.Flags().GetInt("months")
		persist, _ := cmd.Flags().GetBool("persist")
		set, err := compare.NewComparator(manager).Compare(ctx, inst, scenarios, compare.Options{
			Months:  months,
			Persist: persist,
		})
		if err != nil {
			stdlog.Fatal(err)
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "json":
			out, err := (&compare.JSONFormatter{Pretty: true}).Format(set)
			if err != nil {
				stdlog.Fatal(err)
			}
			fmt.Println(out)
		case "csv":
			out, err := (&compare.CSVFormatter{}).Format(set)
			if err != nil {
				stdlog.Fatal(err)
			}
			fmt.Print(out)
		case "compact":
			fmt.Println((&compare.TableFormatter{}).FormatCompact(set))
		default:
			fmt.Println((&compare.TableFormatter{}).Format(set))
		}
	},
}

// compareScenarios resolves the scenario set for a comparison: an explicit
// YAML file when given, otherwise the stock set for the instrument kind.
func compareScenarios(ctx context.Context, cmd *cobra.Command, store *storage.Store, inst *domain.Instrument) ([]domain.Scenario, error) {
	if file, _ := cmd.Flags().GetString("scenarios"); file != "" {
		return config.NewScenarioParser().LoadFromFile(file)
	}
	if inst.Kind == domain.KindMortgage {
		return domain.DefaultMortgageScenarios(), nil
	}
	settings, err := config.LoadPensionSettings(ctx, store)
	if err != nil {
		return nil, err
	}
	names := []string{domain.ScenarioDefault, domain.ScenarioOptimistic, domain.ScenarioPessimistic}
	scenarios := make([]domain.Scenario, 0, len(names))
	for _, name := range names {
		scenarios = append(scenarios, domain.Scenario{
			Name:              name,
			MonthlyGrowthRate: settings.RateForScenario(name),
		})
	}
	return scenarios, nil
}

var settingsCmd = &cobra.Command{
	Use:   "settings [key] [value]",
	Short: "Show or change a setting",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openStore()
		defer store.Close()

		key := args[0]
		if len(args) == 1 {
			value, ok, err := store.Get(ctx, key)
			if err != nil {
				stdlog.Fatal(err)
			}
			if !ok {
				fmt.Printf("%s is not set\n", key)
				return
			}
			fmt.Printf("%s = %s\n", key, value)
			return
		}
		if err := store.Set(ctx, key, args[1], "", ""); err != nil {
			stdlog.Fatal(err)
		}
		fmt.Printf("%s = %s\n", key, args[1])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (defaults to $HEARTH_DB, then hearth.db)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	listCmd.Flags().Bool("all", false, "Include inactive instruments")

	addCmd.Flags().String("kind", "pension", "Instrument kind: pension or mortgage")
	addCmd.Flags().String("name", "", "Instrument name")
	addCmd.Flags().String("value", "", "Current value (pot value or outstanding balance)")
	addCmd.Flags().String("person", "", "Pension owner")
	addCmd.Flags().String("contribution", "", "Monthly pension contribution")
	addCmd.Flags().Int("retirement-age", 0, "Retirement age override for this pension")
	addCmd.Flags().String("property", "", "Mortgaged property")
	addCmd.Flags().String("payment", "", "Monthly mortgage payment")
	addCmd.Flags().String("rate", "", "Annual interest rate as a fraction, e.g. 0.0439")
	addCmd.Flags().String("overpayment", "", "Standing monthly overpayment")
	addCmd.Flags().Int("payment-day", 1, "Day of month payments fall on (1-28)")
	addCmd.Flags().Int64("account", 0, "Ledger account to post mortgage payments to")

	regenerateCmd.Flags().StringP("scenario", "s", "", "Scenario to regenerate (default per instrument)")
	regenerateAllCmd.Flags().StringP("scenario", "s", "", "Scenario to regenerate (default per instrument)")

	timelineCmd.Flags().StringP("scenario", "s", domain.ScenarioDefault, "Projection scenario to merge in")

	compareCmd.Flags().String("scenarios", "", "YAML file with custom scenarios")
	compareCmd.Flags().IntP("months", "m", 0, "Horizon override in months")
	compareCmd.Flags().Bool("persist", false, "Also persist projection rows per scenario")
	compareCmd.Flags().StringP("format", "f", "table", "Output format: table, compact, json, csv")

	rootCmd.AddCommand(listCmd, addCmd, regenerateCmd, regenerateAllCmd,
		recordCmd, confirmCmd, timelineCmd, retirementCmd, compareCmd,
		settingsCmd, versionCmd())
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

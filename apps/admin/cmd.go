package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/paes/core/trust"
	"github.com/trezcool/paes/core/user"
	"github.com/trezcool/paes/storage/database"
)

var (
	isTerminalFunc   = term.IsTerminal // mockable
	runMigrationFunc = database.RunMigration

	errHelp = errors.New("help provided")
)

// trustService is the part of the validation engine operators can drive.
type trustService interface {
	GetUserValidationHistory(ctx context.Context, p user.Principal, userID string, limit int) ([]trust.ValidatedAction, error)
	GetValidationStats(ctx context.Context, p user.Principal, hours int) (trust.Stats, error)
	FlagUserForReview(ctx context.Context, p user.Principal, userID string, nf trust.NewUserFlag) (trust.UserFlag, error)
	ListUserFlags(ctx context.Context, p user.Principal, userID string) ([]trust.UserFlag, error)
}

type commandLine struct {
	db       *sqlx.DB
	trustSvc trustService
	out      io.Writer
	jsonOut  bool // machine readable output; default when stdout is not a terminal
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|up-to VERSION|down|down-to VERSION|redo - run database migrations")
	fmt.Fprintln(cli.out, "  stats [-hours 24] [-json]                           - show validation stats")
	fmt.Fprintln(cli.out, "  history -user ID [-limit 50] [-json]                - show a user's validation history")
	fmt.Fprintln(cli.out, "  flaguser -user ID -reason REASON [-evidence TEXT]   - flag a user for moderator review")
	fmt.Fprintln(cli.out, "  flags [-user ID] [-json]                            - list user flags")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	statsCmd := cli.newFlagSet("stats")
	statsHours := statsCmd.Int("hours", trust.DefaultStatsHours, "The size of the window, in hours.")
	statsJSON := statsCmd.Bool("json", cli.jsonOut, "Print JSON.")

	historyCmd := cli.newFlagSet("history")
	historyUser := historyCmd.String("user", "", "The user's ID.")
	historyLimit := historyCmd.Int("limit", trust.DefaultHistoryLimit, "How many actions to show (max 200).")
	historyJSON := historyCmd.Bool("json", cli.jsonOut, "Print JSON.")

	flagUserCmd := cli.newFlagSet("flaguser")
	flagUserUser := flagUserCmd.String("user", "", "The user's ID.")
	flagUserReason := flagUserCmd.String("reason", "", "Why the user needs a review.")
	flagUserEvidence := flagUserCmd.String("evidence", "", "Supporting evidence, eg. action IDs.")

	flagsCmd := cli.newFlagSet("flags")
	flagsUser := flagsCmd.String("user", "", "Only list the flags of this user.")
	flagsJSON := flagsCmd.Bool("json", cli.jsonOut, "Print JSON.")

	operator := user.System()

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])

	case "stats":
		if err := statsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		stats, err := cli.trustSvc.GetValidationStats(ctx, operator, *statsHours)
		if err != nil {
			return err
		}
		if *statsJSON {
			return cli.printJSON(stats)
		}
		return cli.printStats(stats, *statsHours)

	case "history":
		if err := historyCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *historyUser == "" {
			historyCmd.Usage()
			return errHelp
		}
		actions, err := cli.trustSvc.GetUserValidationHistory(ctx, operator, *historyUser, *historyLimit)
		if err != nil {
			return err
		}
		if *historyJSON {
			return cli.printJSON(actions)
		}
		return cli.printActions(actions)

	case "flaguser":
		if err := flagUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *flagUserUser == "" || *flagUserReason == "" {
			flagUserCmd.Usage()
			return errHelp
		}
		uf, err := cli.trustSvc.FlagUserForReview(ctx, operator, *flagUserUser, trust.NewUserFlag{
			Reason:   *flagUserReason,
			Evidence: *flagUserEvidence,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "user %s flagged for review (flag %s)\n", uf.UserID, uf.ID)
		return nil

	case "flags":
		if err := flagsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		flags, err := cli.trustSvc.ListUserFlags(ctx, operator, *flagsUser)
		if err != nil {
			return err
		}
		if *flagsJSON {
			return cli.printJSON(flags)
		}
		return cli.printFlags(flags)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}

	var version int64
	switch args[0] {
	case "up-to", "down-to":
		if len(args) < 2 {
			return errors.Errorf("%s must be of form: migrate %s VERSION", args[0], args[0])
		}
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errors.Errorf("version must be a number (got '%s')", args[1])
		}
		version = v
	}
	return runMigrationFunc(cli.db, args[0], version)
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding output")
}

func (cli *commandLine) printStats(stats trust.Stats, hours int) error {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "window\tlast %dh\n", hours)
	fmt.Fprintf(w, "actions\t%d\n", stats.TotalActions)
	fmt.Fprintf(w, "suspicious actions\t%d (%.1f%%)\n", stats.SuspiciousActions, 100*stats.SuspiciousActionRate)
	fmt.Fprintf(w, "suspicious users\t%d\n", stats.SuspiciousUsers)
	fmt.Fprintf(w, "average score\t%.3f\n", stats.AverageValidationScore)
	for _, at := range trust.AllActionTypes {
		if n := stats.ActionsByType[at]; n > 0 {
			fmt.Fprintf(w, "  %s\t%d\n", at, n)
		}
	}
	return w.Flush()
}

func (cli *commandLine) printActions(actions []trust.ValidatedAction) error {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAT\tTYPE\tITEM\tSCORE\tFLAGGED\tISSUES")
	for _, a := range actions {
		var issues []string
		for _, checker := range []string{
			trust.CheckerTiming, trust.CheckerRate, trust.CheckerConsistency,
			trust.CheckerSession, trust.CheckerActionSpecific, trust.CheckerPattern,
		} {
			issues = append(issues, a.Metadata[checker]...)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3f\t%t\t%s\n",
			a.ID, a.ServerTimestamp.Format(time.RFC3339), a.ActionType, a.ItemID,
			a.ValidationScore, a.FlaggedAsSuspicious, strings.Join(issues, "; "),
		)
	}
	return w.Flush()
}

func (cli *commandLine) printFlags(flags []trust.UserFlag) error {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tBY\tAT\tSTATUS\tREASON")
	for _, f := range flags {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.UserID, f.FlaggedBy, f.CreatedAt.Format(time.RFC3339), f.Status, f.Reason,
		)
	}
	return w.Flush()
}

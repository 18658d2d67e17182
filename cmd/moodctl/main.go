package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/moodtrack/internal/api"
	"github.com/matheus3301/moodtrack/internal/mood"
	"github.com/matheus3301/moodtrack/internal/profile"
	grpcstatus "google.golang.org/grpc/status"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// The catalog is static; no daemon needed.
	if args[0] == "moods" {
		cmdMoods(*jsonFlag)
		return
	}

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fail(err)
	}

	c, err := api.Dial(profile.SocketPath(name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for profile %q: %v\n", name, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := printer{json: *jsonFlag}
	switch args[0] {
	case "add":
		cmdAdd(ctx, c, out, args[1:])
	case "edit":
		cmdEdit(ctx, c, out, args[1:])
	case "delete":
		cmdDelete(ctx, c, out, args[1:])
	case "get":
		cmdGet(ctx, c, out, args[1:])
	case "list":
		cmdList(ctx, c, out, args[1:])
	case "summary":
		cmdSummary(ctx, c, out, args[1:])
	case "status":
		cmdStatus(ctx, c, out)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: moodctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  add [--date YYYY-MM-DD] <emoji> <note>   Record a mood (default: today)")
	fmt.Fprintln(os.Stderr, "  edit <id> [--emoji E] [--note N]        Change an entry's mood or note")
	fmt.Fprintln(os.Stderr, "  delete <id>                             Delete an entry")
	fmt.Fprintln(os.Stderr, "  get <id>                                Show one entry")
	fmt.Fprintln(os.Stderr, "  list [month]                            List entries (all, or 1-12 of this year)")
	fmt.Fprintln(os.Stderr, "  summary <month>                         Monthly average for 1-12 of this year")
	fmt.Fprintln(os.Stderr, "  moods                                   Show the mood catalog")
	fmt.Fprintln(os.Stderr, "  status                                  Show daemon status")
}

func cmdAdd(ctx context.Context, c *api.Client, out printer, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	date := fs.String("date", "", "entry date as YYYY-MM-DD (default today)")
	_ = fs.Parse(args)
	if fs.NArg() < 2 {
		usage("moodctl add [--date YYYY-MM-DD] <emoji> <note>")
	}

	req := api.AddRequest{Emoji: fs.Arg(0), Note: strings.Join(fs.Args()[1:], " ")}
	if *date != "" {
		d, err := time.ParseInLocation(api.DayLayout, *date, time.Local)
		if err != nil {
			fail(fmt.Errorf("invalid --date %q: use YYYY-MM-DD", *date))
		}
		req.Date = d
	}

	e, err := c.AddEntry(ctx, req)
	if err != nil {
		fail(err)
	}
	out.entry(e)
}

func cmdEdit(ctx context.Context, c *api.Client, out printer, args []string) {
	if len(args) == 0 {
		usage("moodctl edit <id> [--emoji E] [--note N]")
	}
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	emoji := fs.String("emoji", "", "new mood emoji")
	note := fs.String("note", "", "new note")
	_ = fs.Parse(args[1:])

	req := api.UpdateRequest{ID: args[0]}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "emoji":
			req.Emoji = emoji
		case "note":
			req.Note = note
		}
	})

	e, err := c.UpdateEntry(ctx, req)
	if err != nil {
		fail(err)
	}
	out.entry(e)
}

func cmdDelete(ctx context.Context, c *api.Client, out printer, args []string) {
	if len(args) != 1 {
		usage("moodctl delete <id>")
	}
	if err := c.DeleteEntry(ctx, args[0]); err != nil {
		fail(err)
	}
	if out.json {
		outputJSON(map[string]any{"id": args[0], "deleted": true})
		return
	}
	fmt.Printf("Deleted %s\n", args[0])
}

func cmdGet(ctx context.Context, c *api.Client, out printer, args []string) {
	if len(args) != 1 {
		usage("moodctl get <id>")
	}
	e, err := c.GetEntry(ctx, args[0])
	if err != nil {
		fail(err)
	}
	out.entry(e)
}

func cmdList(ctx context.Context, c *api.Client, out printer, args []string) {
	month := 0
	if len(args) > 0 {
		month = parseMonth(args[0])
	}
	entries, err := c.ListEntries(ctx, month)
	if err != nil {
		fail(err)
	}
	if out.json {
		outputJSON(entryViews(entries))
		return
	}
	if len(entries) == 0 {
		fmt.Println("No entries.")
		return
	}
	for _, e := range entries {
		printEntryLine(e)
	}
}

func cmdSummary(ctx context.Context, c *api.Client, out printer, args []string) {
	if len(args) != 1 {
		usage("moodctl summary <month>")
	}
	s, err := c.MonthSummary(ctx, parseMonth(args[0]))
	if err != nil {
		fail(err)
	}
	if out.json {
		outputJSON(map[string]any{
			"month":           s.Month.String(),
			"entries":         entryViews(s.Entries),
			"average":         s.Average,
			"average_percent": s.AveragePercent,
			"emoji":           s.Emoji,
		})
		return
	}
	fmt.Printf("Month:   %s\n", s.Month)
	if !s.HasData() {
		fmt.Println("No entries.")
		return
	}
	fmt.Printf("Entries: %d\n", len(s.Entries))
	fmt.Printf("Average: %.2f / %d (%.0f%%) %s\n", s.Average, mood.MaxScore, s.AveragePercent, s.Emoji)
	for _, e := range s.Entries {
		fmt.Printf("  %s  %s %d\n", e.Date.Format(api.DayLayout), e.Emoji, e.Score)
	}
}

func cmdMoods(jsonOut bool) {
	if jsonOut {
		outputJSON(mood.Catalog)
		return
	}
	for _, m := range mood.Catalog {
		fmt.Printf("%s  %d  %s\n", m.Emoji, m.Score, m.Label)
	}
}

func cmdStatus(ctx context.Context, c *api.Client, out printer) {
	st, err := c.Status(ctx)
	if err != nil {
		fail(err)
	}
	if out.json {
		outputJSON(map[string]any{
			"profile":        st.Profile,
			"connectivity":   st.Connectivity,
			"pending_mirror": st.PendingMirror,
			"entries":        st.Entries,
			"uptime_ms":      st.Uptime.Milliseconds(),
		})
		return
	}
	fmt.Printf("Profile:      %s\n", st.Profile)
	fmt.Printf("Connectivity: %s", st.Connectivity)
	if !st.ConnectivitySince.IsZero() {
		fmt.Printf(" (since %s)", st.ConnectivitySince.Local().Format(time.Kitchen))
	}
	fmt.Println()
	fmt.Printf("Mirror queue: %d\n", st.PendingMirror)
	fmt.Printf("Entries:      %d\n", st.Entries)
	fmt.Printf("Uptime:       %s\n", st.Uptime.Truncate(time.Second))
}

type printer struct {
	json bool
}

func (p printer) entry(e mood.Entry) {
	if p.json {
		outputJSON(entryView(e))
		return
	}
	fmt.Printf("ID:    %s\n", e.ID)
	fmt.Printf("Date:  %s\n", e.Date.Format(api.DayLayout))
	fmt.Printf("Mood:  %s (%d)\n", e.Emoji, e.Score)
	fmt.Printf("Note:  %s\n", e.Note)
}

func printEntryLine(e mood.Entry) {
	fmt.Printf("%s  %s %d  %-36s  %s\n", e.Date.Format(api.DayLayout), e.Emoji, e.Score, e.ID, firstLine(e.Note))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func entryView(e mood.Entry) map[string]any {
	return map[string]any{
		"id":    e.ID,
		"date":  e.Date.Format(api.DayLayout),
		"emoji": e.Emoji,
		"score": e.Score,
		"note":  e.Note,
	}
}

func entryViews(entries []mood.Entry) []map[string]any {
	views := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView(e))
	}
	return views
}

func parseMonth(raw string) int {
	m, err := strconv.Atoi(raw)
	if err != nil || m < 1 || m > 12 {
		fail(fmt.Errorf("invalid month %q: use 1-12", raw))
	}
	return m
}

func usage(line string) {
	fmt.Fprintf(os.Stderr, "usage: %s\n", line)
	os.Exit(1)
}

func fail(err error) {
	if st, ok := grpcstatus.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "error: %s\n", st.Message())
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

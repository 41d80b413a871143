package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/meridian-fin/meridian-fin/internal/fx"
	"github.com/meridian-fin/meridian-fin/internal/shared"
)

// FXBackfillMode enumerates supported execution strategies.
type FXBackfillMode string

const (
	// FXBackfillModeDry previews gaps without applying changes.
	FXBackfillModeDry FXBackfillMode = "dry"
	// FXBackfillModeApply persists rates after confirmation.
	FXBackfillModeApply FXBackfillMode = "apply"
)

// FXBackfillOptions configures the backfill command execution.
type FXBackfillOptions struct {
	Pair         string
	From         string
	To           string
	Mode         FXBackfillMode
	Source       string
	SourceReader io.Reader
	JSONOutput   bool
	Stdout       io.Writer
	Stderr       io.Writer
	Stdin        io.Reader
	Confirm      func(io.Reader, io.Writer) (bool, error)
}

// FXBackfillSummary captures the structured reporting outcome.
type FXBackfillSummary struct {
	Pair       string                `json:"pair"`
	Mode       FXBackfillMode        `json:"mode"`
	From       string                `json:"from"`
	To         string                `json:"to"`
	Missing    []string              `json:"missing_periods"`
	Candidates []FXBackfillCandidate `json:"candidates"`
	Applied    []FXBackfillCandidate `json:"applied,omitempty"`
}

// FXBackfillCandidate summarises a rate sourced from CSV/stdin.
type FXBackfillCandidate struct {
	Period  string  `json:"period"`
	Average float64 `json:"average"`
	Closing float64 `json:"closing"`
}

// BackfillCommand finds months in [from, to] without a usable closing rate
// for the pair and, in apply mode, fills them from the CSV source. Rows are
// dated on the last day of their month so statement generation, which reads
// the latest rate on or before the period end, picks them up.
// Exit codes follow ValidateCommand: 0 done, 1 error, 10 gaps left unapplied.
func (c *FXOpsCLI) BackfillCommand(ctx context.Context, opts FXBackfillOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Mode == "" {
		opts.Mode = FXBackfillModeDry
	}
	mode := FXBackfillMode(strings.ToLower(string(opts.Mode)))
	switch mode {
	case FXBackfillModeDry, FXBackfillModeApply:
	default:
		fmt.Fprintf(opts.Stderr, "fx backfill: invalid mode %q (expected dry or apply)\n", opts.Mode)
		return 1
	}
	pair := strings.ToUpper(strings.TrimSpace(opts.Pair))
	if !fx.ValidPair(pair) {
		fmt.Fprintf(opts.Stderr, "fx backfill: invalid --pair %q (expected six letters, e.g. EURUSD)\n", opts.Pair)
		return 1
	}
	from, err := shared.ParseMonth(strings.TrimSpace(opts.From))
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fx backfill: invalid --from %q (expected YYYY-MM)\n", opts.From)
		return 1
	}
	to, err := shared.ParseMonth(strings.TrimSpace(opts.To))
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fx backfill: invalid --to %q (expected YYYY-MM)\n", opts.To)
		return 1
	}
	if from.After(to) {
		fmt.Fprintln(opts.Stderr, "fx backfill: --from must not be later than --to")
		return 1
	}

	var missing []string
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 1, 0) {
		rate, err := c.store.MonthRate(ctx, pair, cur)
		switch {
		case errors.Is(err, fx.ErrRateNotFound):
			missing = append(missing, shared.MonthCode(cur))
		case err != nil:
			fmt.Fprintf(opts.Stderr, "fx backfill: check %s: %v\n", shared.MonthCode(cur), err)
			return 1
		case rate.Closing <= 0:
			missing = append(missing, shared.MonthCode(cur))
		}
	}

	candidates, err := loadBackfillCandidates(pair, opts)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fx backfill: %v\n", err)
		return 1
	}
	summary := FXBackfillSummary{
		Pair:       pair,
		Mode:       mode,
		From:       shared.MonthCode(from),
		To:         shared.MonthCode(to),
		Missing:    missing,
		Candidates: sortedCandidates(candidates),
	}

	if mode == FXBackfillModeDry || len(missing) == 0 {
		if err := writeBackfillOutput(opts, summary); err != nil {
			fmt.Fprintf(opts.Stderr, "fx backfill: %v\n", err)
			return 1
		}
		if len(missing) > 0 {
			return 10
		}
		return 0
	}

	rows, err := buildRateRows(pair, candidates, missing)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fx backfill: %v\n", err)
		return 1
	}
	confirm := opts.Confirm
	if confirm == nil {
		confirm = defaultBackfillConfirm
	}
	ok, err := confirm(opts.Stdin, opts.Stdout)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fx backfill: confirmation failed: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(opts.Stderr, "fx backfill: cancelled by user")
		return 1
	}
	if err := c.store.UpsertRates(ctx, rows); err != nil {
		fmt.Fprintf(opts.Stderr, "fx backfill: apply failed: %v\n", err)
		return 1
	}
	if c.invalidator != nil {
		// Cached statements converted with the old rates are stale now.
		if err := c.invalidator.Bump(ctx); err != nil {
			fmt.Fprintf(opts.Stderr, "fx backfill: statement cache invalidation failed: %v\n", err)
		}
	}
	applied := make([]FXBackfillCandidate, len(rows))
	for i, row := range rows {
		applied[i] = FXBackfillCandidate{
			Period:  shared.MonthCode(row.AsOf),
			Average: row.Average,
			Closing: row.Closing,
		}
	}
	sort.Slice(applied, func(i, j int) bool { return applied[i].Period < applied[j].Period })
	summary.Applied = applied
	if err := writeBackfillOutput(opts, summary); err != nil {
		fmt.Fprintf(opts.Stderr, "fx backfill: %v\n", err)
		return 1
	}
	return 0
}

// loadBackfillCandidates parses the CSV source into candidates keyed by month
// code. Expected columns: period, pair, average, closing; extra columns and
// comment lines starting with # are ignored. Rows for other pairs are skipped.
func loadBackfillCandidates(pair string, opts FXBackfillOptions) (map[string]FXBackfillCandidate, error) {
	var data []byte
	var err error
	switch {
	case opts.SourceReader != nil:
		data, err = io.ReadAll(opts.SourceReader)
	case opts.Source == "-":
		if opts.Stdin == nil {
			return nil, errors.New("source - requires stdin")
		}
		data, err = io.ReadAll(opts.Stdin)
	case strings.TrimSpace(opts.Source) == "":
		return map[string]FXBackfillCandidate{}, nil
	default:
		data, err = os.ReadFile(opts.Source)
	}
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return map[string]FXBackfillCandidate{}, nil
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	header, err := nextDataRecord(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]FXBackfillCandidate{}, nil
		}
		return nil, err
	}
	columns := map[string]int{"period": -1, "pair": -1, "average": -1, "closing": -1}
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "period":
			columns["period"] = i
		case "pair":
			columns["pair"] = i
		case "average", "average_rate":
			columns["average"] = i
		case "closing", "closing_rate":
			columns["closing"] = i
		}
	}
	for _, name := range []string{"period", "pair", "average", "closing"} {
		if columns[name] < 0 {
			return nil, fmt.Errorf("source is missing the %s column (need period, pair, average, closing)", name)
		}
	}
	result := make(map[string]FXBackfillCandidate)
	for {
		record, err := nextDataRecord(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if columns["closing"] >= len(record) || columns["average"] >= len(record) ||
			columns["period"] >= len(record) || columns["pair"] >= len(record) {
			return nil, errors.New("invalid record length in source")
		}
		periodStr := strings.TrimSpace(record[columns["period"]])
		if periodStr == "" {
			continue
		}
		month, err := shared.ParseMonth(periodStr)
		if err != nil {
			return nil, fmt.Errorf("invalid period %q in source", periodStr)
		}
		code := shared.MonthCode(month)
		sourcePair := strings.ToUpper(strings.TrimSpace(record[columns["pair"]]))
		if sourcePair != pair {
			continue
		}
		avg, err := strconv.ParseFloat(strings.TrimSpace(record[columns["average"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid average for %s: %v", code, err)
		}
		closing, err := strconv.ParseFloat(strings.TrimSpace(record[columns["closing"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid closing for %s: %v", code, err)
		}
		result[code] = FXBackfillCandidate{Period: code, Average: avg, Closing: closing}
	}
	return result, nil
}

func nextDataRecord(r *csv.Reader) ([]string, error) {
	for {
		record, err := r.Read()
		if err != nil {
			return nil, err
		}
		empty := true
		for _, field := range record {
			trimmed := strings.TrimSpace(field)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			empty = false
		}
		if empty {
			continue
		}
		return record, nil
	}
}

func sortedCandidates(candidates map[string]FXBackfillCandidate) []FXBackfillCandidate {
	rows := make([]FXBackfillCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		rows = append(rows, candidate)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })
	return rows
}

// buildRateRows turns candidates into upsert rows for the missing months,
// dated on the last day of each month.
func buildRateRows(pair string, candidates map[string]FXBackfillCandidate, missing []string) ([]fx.Rate, error) {
	rows := make([]fx.Rate, 0, len(missing))
	for _, code := range missing {
		candidate, ok := candidates[code]
		if !ok {
			return nil, fmt.Errorf("missing source rates for %s", code)
		}
		if candidate.Closing <= 0 {
			return nil, fmt.Errorf("non-positive closing rate for %s", code)
		}
		month, err := shared.ParseMonth(code)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fx.Rate{
			Pair:    pair,
			Closing: candidate.Closing,
			Average: candidate.Average,
			AsOf:    shared.MonthStart(month).AddDate(0, 1, -1),
		})
	}
	return rows, nil
}

func writeBackfillOutput(opts FXBackfillOptions, summary FXBackfillSummary) error {
	if opts.JSONOutput {
		return json.NewEncoder(opts.Stdout).Encode(summary)
	}
	renderBackfillHuman(opts.Stdout, summary)
	return nil
}

func renderBackfillHuman(out io.Writer, summary FXBackfillSummary) {
	fmt.Fprintf(out, "FX backfill (%s) for %s, %s to %s\n", summary.Mode, summary.Pair, summary.From, summary.To)
	if len(summary.Missing) == 0 {
		fmt.Fprintln(out, "No gaps detected.")
	} else {
		fmt.Fprintf(out, "%d month(s) without a closing rate: %s\n", len(summary.Missing), strings.Join(summary.Missing, ", "))
	}
	if len(summary.Candidates) > 0 {
		fmt.Fprintln(out, "Source candidates:")
		for _, candidate := range summary.Candidates {
			fmt.Fprintf(out, " - %s average %.6f closing %.6f\n", candidate.Period, candidate.Average, candidate.Closing)
		}
	}
	if len(summary.Applied) > 0 {
		fmt.Fprintln(out, "Applied:")
		for _, row := range summary.Applied {
			fmt.Fprintf(out, " - %s average %.6f closing %.6f\n", row.Period, row.Average, row.Closing)
		}
	}
}

func defaultBackfillConfirm(r io.Reader, w io.Writer) (bool, error) {
	fmt.Fprint(w, "Apply FX backfill? Type YES to confirm: ")
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "YES"), nil
}

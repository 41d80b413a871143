package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/meridian-fin/meridian-fin/internal/fx"
	"github.com/meridian-fin/meridian-fin/internal/shared"
)

// FXValidateOptions defines available flags for the fx validate command.
type FXValidateOptions struct {
	Pairs      []string
	Period     string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// FXValidateSummary describes the JSON response for fx validate.
type FXValidateSummary struct {
	OK        bool                 `json:"ok"`
	Period    string               `json:"period"`
	Gaps      []FXRateGap          `json:"gaps"`
	Available []FXRateAvailability `json:"available"`
}

// FXRateGap reports a missing rate method for a pair in the period.
type FXRateGap struct {
	Pair   string `json:"pair"`
	Method string `json:"method"`
}

// FXRateAvailability reports a present rate method and its effective date.
type FXRateAvailability struct {
	Pair   string    `json:"pair"`
	Method string    `json:"method"`
	AsOf   time.Time `json:"as_of"`
}

// ValidateCommand checks that every requested pair carries a rate row dated
// inside the period month. Statement generation resolves rates as of the
// period end and falls back to the latest earlier row, so a month without its
// own row silently reuses a stale rate; this command surfaces that before
// close. Exit codes: 0 complete, 1 usage or query failure, 10 gaps found.
func (c *FXOpsCLI) ValidateCommand(ctx context.Context, opts FXValidateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(opts.Pairs) == 0 {
		fmt.Fprintln(opts.Stderr, "fx validate: --pairs is required")
		return 1
	}
	month, err := shared.ParseMonth(strings.TrimSpace(opts.Period))
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fx validate: invalid period %q (expected YYYY-MM)\n", opts.Period)
		return 1
	}
	pairs := make([]string, 0, len(opts.Pairs))
	for _, raw := range opts.Pairs {
		pair := strings.ToUpper(strings.TrimSpace(raw))
		if pair == "" {
			continue
		}
		if !fx.ValidPair(pair) {
			fmt.Fprintf(opts.Stderr, "fx validate: invalid pair %q (expected six letters, e.g. EURUSD)\n", raw)
			return 1
		}
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		fmt.Fprintln(opts.Stderr, "fx validate: --pairs is required")
		return 1
	}
	sort.Strings(pairs)

	summary := FXValidateSummary{Period: shared.MonthCode(month)}
	for _, pair := range pairs {
		rate, err := c.store.MonthRate(ctx, pair, month)
		switch {
		case errors.Is(err, fx.ErrRateNotFound):
			summary.Gaps = append(summary.Gaps,
				FXRateGap{Pair: pair, Method: string(fx.MethodAverage)},
				FXRateGap{Pair: pair, Method: string(fx.MethodClosing)},
			)
			continue
		case err != nil:
			fmt.Fprintf(opts.Stderr, "fx validate: %s: %v\n", pair, err)
			return 1
		}
		if rate.Average > 0 {
			summary.Available = append(summary.Available, FXRateAvailability{Pair: pair, Method: string(fx.MethodAverage), AsOf: rate.AsOf})
		} else {
			summary.Gaps = append(summary.Gaps, FXRateGap{Pair: pair, Method: string(fx.MethodAverage)})
		}
		if rate.Closing > 0 {
			summary.Available = append(summary.Available, FXRateAvailability{Pair: pair, Method: string(fx.MethodClosing), AsOf: rate.AsOf})
		} else {
			summary.Gaps = append(summary.Gaps, FXRateGap{Pair: pair, Method: string(fx.MethodClosing)})
		}
	}
	summary.OK = len(summary.Gaps) == 0

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			fmt.Fprintf(opts.Stderr, "fx validate: encode json: %v\n", err)
			return 1
		}
	} else {
		renderValidateHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return 10
	}
	return 0
}

func renderValidateHuman(out io.Writer, summary FXValidateSummary) {
	fmt.Fprintf(out, "FX validation for period %s\n", summary.Period)
	if len(summary.Gaps) == 0 {
		fmt.Fprintln(out, "All requested rates are present.")
	} else {
		fmt.Fprintf(out, "%d gap(s) detected:\n", len(summary.Gaps))
		for _, gap := range summary.Gaps {
			fmt.Fprintf(out, " - %s missing %s\n", gap.Pair, gap.Method)
		}
	}
	if len(summary.Available) > 0 {
		fmt.Fprintln(out, "Available:")
		for _, quote := range summary.Available {
			fmt.Fprintf(out, " - %s %s as of %s\n", quote.Pair, quote.Method, quote.AsOf.Format("2006-01-02"))
		}
	}
}

// Package ui formats console output for the search CLI.
package ui

import (
	"fmt"
	"time"

	"github.com/solvanity/pkg/search"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// PrintSearchInfo displays the pattern being searched and its expected
// difficulty.
func PrintSearchInfo(spec search.Spec) {
	fmt.Printf("\n    %sSEARCHING%s", ColorGreen+ColorBold, ColorReset)
	if spec.Prefix != "" {
		fmt.Printf(" %s%s%s%s...%s", ColorBold, ColorCyan, spec.Prefix, ColorDim, ColorReset)
	}
	if spec.Suffix != "" {
		fmt.Printf("%s...%s%s%s%s", ColorDim, ColorCyan, ColorBold, spec.Suffix, ColorReset)
	}
	if !spec.CaseSensitive {
		fmt.Printf(" %s(case-insensitive)%s", ColorDim, ColorReset)
	}
	fmt.Printf(" %s(1/%s per key)%s\n\n", ColorDim, FormatNumber(spec.Difficulty()), ColorReset)
}

// PrintMatch shows a found keypair and where it was saved.
func PrintMatch(m search.MatchResult, keyfile string) {
	fmt.Printf("\n    %s%sFOUND%s  %s%s%s%s\n", ColorGreen, ColorBold, ColorReset,
		ColorGreen, ColorBold, m.Address, ColorReset)
	fmt.Printf("    %safter %s keys%s", ColorDim, FormatNumber(m.GenerationCount), ColorReset)
	if keyfile != "" {
		fmt.Printf("  %s->%s %s", ColorDim, ColorReset, keyfile)
	}
	fmt.Println()
}

// PrintSummary shows the end-of-session totals.
func PrintSummary(snap search.Snapshot) {
	fmt.Printf("\n    %s%d/%d found%s   %s keys   %s   %s\n",
		ColorBold, snap.MatchesFound, snap.MatchesRequested, ColorReset,
		FormatNumber(snap.TotalGenerated),
		FormatRate(snap.Rate()),
		FormatDuration(snap.Elapsed))
	if snap.MatchesFound > 0 {
		fmt.Printf("    %s%sKEEP YOUR KEYFILES SECRET!%s\n", ColorRed, ColorBold, ColorReset)
	}
}

// FormatRate formats a keys-per-second rate.
func FormatRate(rate float64) string {
	if rate >= 1000000 {
		return fmt.Sprintf("%.1fM keys/s", rate/1000000)
	}
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK keys/s", rate/1000)
	}
	return fmt.Sprintf("%.0f keys/s", rate)
}

// FormatNumber adds commas to large numbers.
func FormatNumber(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

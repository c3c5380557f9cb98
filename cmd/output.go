package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arekfu/posthoc/internal/result"
)

var (
	headerColor = lipgloss.Color("#4682B4") // Steel blue
	mutedColor  = lipgloss.Color("#888888") // Medium gray

	headerStyle = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
)

// printResult writes a result as aligned columns, one row per bin, the
// sentinel row included.
func printResult(res *result.Result, xlabel, ylabel string) {
	if xlabel != "" || ylabel != "" {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("# x: %s, y: %s", xlabel, ylabel)))
	}

	header := []string{"edge", "content"}
	if res.Errors != nil {
		header = append(header, "error")
	}
	if res.XErrors != nil {
		header = append(header, "xerror")
	}
	fmt.Println(headerStyle.Render(formatRow(header)))

	for i := range res.Edges {
		row := []string{
			fmt.Sprintf("%.6g", res.Edges[i]),
			fmt.Sprintf("%.6g", res.Contents[i]),
		}
		if res.Errors != nil {
			row = append(row, fmt.Sprintf("%.6g", res.Errors[i]))
		}
		if res.XErrors != nil {
			row = append(row, fmt.Sprintf("%.6g", res.XErrors[i]))
		}
		fmt.Println(formatRow(row))
	}
}

func formatRow(cells []string) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = fmt.Sprintf("%14s", c)
	}
	return strings.Join(padded, " ")
}

func printNameList(title string, names []string) {
	fmt.Println(headerStyle.Render(title))
	if len(names) == 0 {
		fmt.Println(mutedStyle.Render("  (none)"))
		return
	}
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
}

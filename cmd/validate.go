package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/tolaria/manasearch/pkg/syntax"
	"github.com/urfave/cli/v3"
)

// ValidateCommand creates the validate command
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a Scryfall query for structural problems",
		ArgsUsage: "<query>",
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.Join(c.Args().Slice(), " ")
			report := syntax.Validate(query)

			fmt.Printf("sanitized:  %s\n", report.Sanitized)
			fmt.Printf("normalized: %s\n", syntax.NormalizeBooleanPrecedence(report.Sanitized))

			if len(report.Issues) == 0 {
				fmt.Println("No issues found")
				return nil
			}
			for _, issue := range report.Issues {
				fmt.Printf("issue: %s\n", issue)
			}
			if report.HasStructuralIssue() {
				return fmt.Errorf("query has structural problems")
			}
			return nil
		},
	}
}

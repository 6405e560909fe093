package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tolaria/manasearch/pkg/log"
	"github.com/tolaria/manasearch/pkg/scryfall"
	"github.com/tolaria/manasearch/pkg/searcher"
	"github.com/tolaria/manasearch/pkg/translate"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	queryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Translate a free-text query and search for cards",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-execute",
				Usage: "Print the translated query without calling the card API",
			},
			&cli.BoolFlag{
				Name:  "bypass-cache",
				Usage: "Skip the translation cache",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the raw result as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("debug") {
				log.SetGlobalDebug(true)
			}
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return fmt.Errorf("usage: manasearch search <query>")
			}
			return runSearch(ctx, c.String("config"), query, c.Bool("no-execute"), c.Bool("bypass-cache"), c.Bool("json"))
		},
	}
}

func runSearch(ctx context.Context, configPath, query string, noExecute, bypassCache, asJSON bool) error {
	p, cleanup, err := buildPipeline(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	outcomeCh := make(chan searcher.Outcome, 1)
	noticeCh := make(chan searcher.Notice, 4)

	session := searcher.New(p.cache, p.history, p.limiter, searcher.Config{
		Timeout:  p.cfg.Translator.Timeout.Duration,
		Cooldown: p.cfg.Translator.Cooldown.Duration,
	})
	session.OnResult(func(o searcher.Outcome) { outcomeCh <- o })
	session.OnNotice(func(n searcher.Notice) {
		select {
		case noticeCh <- n:
		default:
		}
	})

	session.HandleSearch(query, searcher.Options{BypassCache: bypassCache})

	var notice searcher.Notice
	select {
	case notice = <-noticeCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	var outcome *searcher.Outcome
	select {
	case o := <-outcomeCh:
		outcome = &o
	default:
	}

	if notice.Kind == searcher.NoticeRateLimited {
		fmt.Println(warnStyle.Render(notice.Message))
		if session.Cooldown() > 0 {
			session.Limiter().Countdown(ctx, func(seconds int) {
				if seconds > 0 {
					fmt.Printf("\r%s", metaStyle.Render(fmt.Sprintf("retry in %2ds ", seconds)))
					return
				}
				fmt.Printf("\r%s\n", metaStyle.Render("cooldown over, search again"))
			})
		}
		return nil
	}
	if outcome == nil {
		return fmt.Errorf("search produced no result")
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(outcome.Result)
	}

	printResult(query, outcome.Result, notice)

	if noExecute {
		return nil
	}

	page, err := p.cards.Search(ctx, outcome.Result.ScryfallQuery, 1)
	if err != nil {
		return fmt.Errorf("searching cards: %w", err)
	}
	printCards(page.Data, page.TotalCards)
	return nil
}

func printResult(query string, result translate.Result, notice searcher.Notice) {
	fmt.Printf("%s %s\n", metaStyle.Render("query:"), query)
	fmt.Printf("%s %s\n", metaStyle.Render("scryfall:"), queryStyle.Render(result.ScryfallQuery))
	if result.Explanation.Readable != "" {
		fmt.Printf("%s %s\n", metaStyle.Render("reading:"), result.Explanation.Readable)
	}
	for _, assumption := range result.Explanation.Assumptions {
		fmt.Printf("%s %s\n", metaStyle.Render("note:"), assumption)
	}
	fmt.Printf("%s %s (confidence %.0f%%)\n\n",
		metaStyle.Render("source:"), result.Source, result.Explanation.Confidence*100)

	if notice.Kind != searcher.NoticeSuccess {
		fmt.Println(warnStyle.Render(notice.Message))
		fmt.Println()
	}
}

func printCards(cards []scryfall.Card, total int) {
	if len(cards) == 0 {
		fmt.Println("No cards found")
		return
	}

	caser := cases.Title(language.English)
	for _, card := range cards {
		var b strings.Builder
		fmt.Fprintf(&b, "%s  %s\n", queryStyle.Render(card.Name), card.ManaCost)
		fmt.Fprintf(&b, "%s\n", card.TypeLine)
		if card.OracleText != "" {
			fmt.Fprintf(&b, "%s\n", card.OracleText)
		}
		meta := fmt.Sprintf("%s · %s", card.SetName, caser.String(card.Rarity))
		if card.Prices.USD != "" {
			meta += " · $" + card.Prices.USD
		}
		b.WriteString(metaStyle.Render(meta))
		fmt.Println(cardStyle.Render(b.String()))
	}
	fmt.Printf("Total: %d cards\n", total)
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/usecase/generate"
	"github.com/urfave/cli/v3"
)

func generateCommand() *cli.Command {
	var (
		cfg   config
		date  string
		force bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Target day (YYYY-MM-DD, default today)",
			Destination: &date,
		},
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Regenerate even if a quiz already exists for the day",
			Destination: &force,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate (or fetch) the daily quiz",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			dateKey := model.DateKey(date)
			if date == "" {
				dateKey = model.NewDateKey(time.Now())
			}

			spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			spin.Suffix = fmt.Sprintf(" generating quiz for %s...", dateKey)
			spin.Start()
			quiz, err := generate.New(repo, gemini).Generate(ctx, dateKey, force)
			spin.Stop()
			if err != nil {
				return err
			}

			printQuizSummary(quiz)
			return nil
		},
	}
}

func printQuizSummary(quiz *model.QuizRecord) {
	fmt.Printf("Quiz for %s\n\n", quiz.DateKey)

	fmt.Printf("LeetCode drill:\n  %s\n\n", quiz.Leetcode.AIQuestion.Question)

	fmt.Printf("Resume drill:\n  %s\n", quiz.Resume.MCQ.Question)
	fmt.Printf("  STAR questions:\n")
	for i, q := range quiz.Resume.StarQuestions {
		fmt.Printf("    %d. [%s] %s\n", i+1, q.Category, q.Question)
	}
	fmt.Println()

	fmt.Printf("Technical drill:\n  %s\n", quiz.Technical.MCQ.Question)
	fmt.Printf("  Coding challenges:\n")
	for i, q := range quiz.Technical.CodingQuestions {
		fmt.Printf("    %d. %s (%s)\n", i+1, q.Title, q.Language)
	}
}

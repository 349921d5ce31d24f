package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/usecase/validate"
	"github.com/urfave/cli/v3"
)

func reviewCommand() *cli.Command {
	var (
		cfg      config
		date     string
		question int64
		file     string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Quiz day (YYYY-MM-DD, default today)",
			Destination: &date,
		},
		&cli.IntFlag{
			Name:        "question",
			Aliases:     []string{"q"},
			Usage:       "Coding question index (0-based)",
			Destination: &question,
		},
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"i"},
			Usage:       "Path to the solution file",
			Required:    true,
			Destination: &file,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "review",
		Usage: "Submit a coding solution for review",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			answer, err := os.ReadFile(file)
			if err != nil {
				return goerr.Wrap(err, "failed to read solution file", goerr.V("path", file))
			}

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

			quiz, err := repo.Get(ctx, dateKey)
			if err != nil {
				return err
			}
			idx := int(question)
			if idx < 0 || idx >= len(quiz.Technical.CodingQuestions) {
				return goerr.New("coding question index out of range", goerr.V("index", idx))
			}
			target := quiz.Technical.CodingQuestions[idx]

			result, err := validate.New(repo, gemini).ValidateCode(ctx, validate.CodeInput{
				DateKey:       dateKey,
				QuestionIndex: idx,
				Question:      target.Description,
				Language:      target.Language,
				Answer:        string(answer),
			})
			if err != nil {
				return err
			}

			fmt.Printf("%s: score %d/10\n\n%s\n", target.Title, result.Score, result.Feedback)
			if result.BetterSolution != "" {
				fmt.Printf("\nSuggested solution:\n%s\n", result.BetterSolution)
			}
			return nil
		},
	}
}

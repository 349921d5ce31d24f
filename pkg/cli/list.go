package cli

import (
	"context"
	"fmt"

	"github.com/r-fujimoto/grind/pkg/usecase/history"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg  config
		days int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "days",
			Usage:       "Number of recent days to list",
			Value:       7,
			Destination: &days,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List recent quizzes",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			quizzes, err := history.List(ctx, repo, int(days))
			if err != nil {
				return err
			}
			if len(quizzes) == 0 {
				fmt.Println("No quizzes in the retention window.")
				return nil
			}

			for _, quiz := range quizzes {
				answered := 0
				for _, q := range quiz.Resume.StarQuestions {
					if _, ok := q.NextStep(); !ok {
						answered++
					}
				}
				reviewed := 0
				for _, q := range quiz.Technical.CodingQuestions {
					if q.Progress != nil {
						reviewed++
					}
				}
				fmt.Printf("%s  star %d/%d  code %d/%d  expires %s\n",
					quiz.DateKey,
					answered, len(quiz.Resume.StarQuestions),
					reviewed, len(quiz.Technical.CodingQuestions),
					quiz.ExpiresAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

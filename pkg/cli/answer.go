package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/model"
	"github.com/r-fujimoto/grind/pkg/usecase/validate"
	"github.com/urfave/cli/v3"
)

func answerCommand() *cli.Command {
	var (
		cfg  config
		date string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Quiz day to answer (YYYY-MM-DD, default today)",
			Destination: &date,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "answer",
		Usage: "Work through the day's STAR questions interactively",
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

			quiz, err := repo.Get(ctx, dateKey)
			if err != nil {
				return err
			}

			rl, err := readline.New("answer> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			validator := validate.New(repo, gemini)
			return runStarSession(ctx, rl, validator, quiz)
		},
	}
}

var stepNames = map[model.StarStep]string{
	model.StepSituation: "Situation",
	model.StepTask:      "Task",
	model.StepAction:    "Action",
	model.StepResult:    "Result",
}

// runStarSession walks every STAR question step by step. This is the
// reference caller-side enforcement of the S -> T -> A -> R gate: a step is
// only offered once its predecessor has a passing segment, and a failed step
// is retried in place rather than moving on.
func runStarSession(ctx context.Context, rl *readline.Instance, validator *validate.UseCase, quiz *model.QuizRecord) error {
	for qi := range quiz.Resume.StarQuestions {
		question := &quiz.Resume.StarQuestions[qi]

		fmt.Printf("\n[%d/%d] (%s) %s\n", qi+1, len(quiz.Resume.StarQuestions), question.Category, question.Question)

		for {
			step, ok := question.NextStep()
			if !ok {
				fmt.Println("All four steps cleared.")
				break
			}
			if err := question.CanSubmit(step); err != nil {
				return err
			}

			fmt.Printf("\n[%s] Describe the %s. Empty line skips to the next question.\n", step, stepNames[step])
			line, err := rl.Readline()
			if err != nil {
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					return nil
				}
				return goerr.Wrap(err, "failed to read answer")
			}
			if line == "" {
				break
			}

			segment, err := validator.ValidateStep(ctx, validate.StepInput{
				DateKey:       quiz.DateKey,
				QuestionIndex: qi,
				Step:          step,
				Question:      question.Question,
				Answer:        line,
			})
			if err != nil {
				return err
			}
			question.Progress.Set(step, segment)

			fmt.Printf("\nScore: %d/10\n%s\n", segment.Score, segment.Feedback)
			if segment.Passed() {
				fmt.Printf("Step %s cleared.\n", step)
			} else {
				fmt.Printf("Score below %d; step %s stays locked. Suggested rewrite:\n%s\n",
					model.PassingScore, step, segment.Improved)
			}
		}
	}
	return nil
}

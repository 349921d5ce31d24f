package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// PassingScore is the minimum score a STAR segment needs before the next step
// unlocks.
const PassingScore = 8

// RetentionDays is how long a quiz stays readable after generation.
const RetentionDays = 7

// DateKey identifies one calendar day's quiz (YYYY-MM-DD). It is the natural
// primary key of a QuizRecord.
type DateKey string

// NewDateKey builds the key for the calendar day of t.
func NewDateKey(t time.Time) DateKey {
	return DateKey(t.Format("2006-01-02"))
}

// Validate checks the key is a well-formed calendar date
func (d DateKey) Validate() error {
	if _, err := time.Parse("2006-01-02", string(d)); err != nil {
		return goerr.Wrap(ErrInvalidDateKey, "date key must be YYYY-MM-DD", goerr.V("dateKey", d))
	}
	return nil
}

// MCQ is a four-option multiple choice question.
type MCQ struct {
	Question     string   `json:"question" firestore:"question"`
	Options      []string `json:"options" firestore:"options"`
	AnswerLetter string   `json:"answer" firestore:"answer"`
	Explanation  string   `json:"explanation" firestore:"explanation"`
}

// Validate checks the MCQ has the expected shape
func (q *MCQ) Validate() error {
	if q.Question == "" {
		return goerr.New("mcq question is empty")
	}
	if len(q.Options) != 4 {
		return goerr.New("mcq must have exactly 4 options", goerr.V("got", len(q.Options)))
	}
	switch q.AnswerLetter {
	case "A", "B", "C", "D":
		return nil
	default:
		return goerr.New("mcq answer must be A-D", goerr.V("answer", q.AnswerLetter))
	}
}

// OpenEnded is a free-form question with answering guidelines.
type OpenEnded struct {
	Question   string `json:"question" firestore:"question"`
	Guidelines string `json:"guidelines" firestore:"guidelines"`
}

// StarStep is one of the four ordered STAR sub-steps.
type StarStep string

const (
	StepSituation StarStep = "S"
	StepTask      StarStep = "T"
	StepAction    StarStep = "A"
	StepResult    StarStep = "R"
)

// StarSteps lists the steps in submission order.
var StarSteps = []StarStep{StepSituation, StepTask, StepAction, StepResult}

// Validate checks if the step is valid
func (s StarStep) Validate() error {
	switch s {
	case StepSituation, StepTask, StepAction, StepResult:
		return nil
	default:
		return goerr.New("invalid star step", goerr.V("step", s))
	}
}

// Segment is the graded result of one submitted STAR step. A re-submission of
// the same step replaces the whole segment.
type Segment struct {
	Answer   string `json:"answer" firestore:"answer"`
	Score    int    `json:"score" firestore:"score"`
	Feedback string `json:"feedback" firestore:"feedback"`
	Improved string `json:"improved,omitempty" firestore:"improved,omitempty"`
}

// Passed reports whether this segment unlocks the next step.
func (s *Segment) Passed() bool {
	return s != nil && s.Score >= PassingScore
}

// StarProgress holds the per-step grading results of one STAR question. A nil
// segment means the step has not been submitted.
type StarProgress struct {
	S *Segment `json:"S,omitempty" firestore:"S,omitempty"`
	T *Segment `json:"T,omitempty" firestore:"T,omitempty"`
	A *Segment `json:"A,omitempty" firestore:"A,omitempty"`
	R *Segment `json:"R,omitempty" firestore:"R,omitempty"`
}

// Get returns the segment for a step, nil when not yet submitted.
func (p *StarProgress) Get(step StarStep) *Segment {
	switch step {
	case StepSituation:
		return p.S
	case StepTask:
		return p.T
	case StepAction:
		return p.A
	case StepResult:
		return p.R
	}
	return nil
}

// Set overwrites the segment for a step.
func (p *StarProgress) Set(step StarStep, seg *Segment) {
	switch step {
	case StepSituation:
		p.S = seg
	case StepTask:
		p.T = seg
	case StepAction:
		p.A = seg
	case StepResult:
		p.R = seg
	}
}

// STARQuestion is a behavioral question answered through the four gated STAR
// steps.
type STARQuestion struct {
	ID       string       `json:"id" firestore:"id"`
	Category string       `json:"category" firestore:"category"`
	Question string       `json:"question" firestore:"question"`
	Progress StarProgress `json:"progress" firestore:"progress"`
}

// NewSTARQuestion creates a STARQuestion with a fresh ID and empty progress.
func NewSTARQuestion(category, question string) STARQuestion {
	return STARQuestion{
		ID:       uuid.New().String(),
		Category: category,
		Question: question,
	}
}

// CanSubmit reports whether a step may be submitted now. Progression is
// strictly S -> T -> A -> R: each step unlocks only after its predecessor
// scored at least PassingScore. The validator does not check this; every
// caller that accepts answers must.
func (q *STARQuestion) CanSubmit(step StarStep) error {
	if err := step.Validate(); err != nil {
		return err
	}
	for _, prev := range StarSteps {
		if prev == step {
			return nil
		}
		if !q.Progress.Get(prev).Passed() {
			return goerr.Wrap(ErrStepLocked, "previous step has no passing result",
				goerr.V("step", step), goerr.V("blockedBy", prev))
		}
	}
	return nil
}

// NextStep returns the first step without a passing segment, or false when
// all four have passed.
func (q *STARQuestion) NextStep() (StarStep, bool) {
	for _, step := range StarSteps {
		if !q.Progress.Get(step).Passed() {
			return step, true
		}
	}
	return "", false
}

// CodeResult is the single-shot review of a coding answer. Unlike STAR
// segments there is no sequencing; the last submission wins.
type CodeResult struct {
	Answer         string `json:"answer" firestore:"answer"`
	Score          int    `json:"score" firestore:"score"`
	Feedback       string `json:"feedback" firestore:"feedback"`
	BetterSolution string `json:"betterSolution,omitempty" firestore:"betterSolution,omitempty"`
}

// CodingQuestion is a coding challenge with optional review progress.
type CodingQuestion struct {
	ID          string      `json:"id" firestore:"id"`
	Title       string      `json:"title" firestore:"title"`
	Description string      `json:"description" firestore:"description"`
	Language    string      `json:"language" firestore:"language"`
	StarterCode string      `json:"starterCode" firestore:"starterCode"`
	Progress    *CodeResult `json:"progress,omitempty" firestore:"progress,omitempty"`
}

// AnswerFeedback is the legacy single-shot evaluation of an open-ended
// answer. Kept for quizzes that predate STAR/coding questions.
type AnswerFeedback struct {
	Feedback        string   `json:"feedback" firestore:"feedback"`
	Score           string   `json:"score" firestore:"score"`
	ImprovementTips []string `json:"improvementTips" firestore:"improvementTips"`
}

// Section names the quiz sections that carry answerable content.
type Section string

const (
	SectionResume    Section = "resume"
	SectionTechnical Section = "technical"
)

// Validate checks if the section is valid
func (s Section) Validate() error {
	switch s {
	case SectionResume, SectionTechnical:
		return nil
	default:
		return goerr.New("invalid section", goerr.V("section", s))
	}
}

// LeetcodeSection is the solved-problem drill of the day.
type LeetcodeSection struct {
	Problem    string `json:"problem" firestore:"problem"`
	AIQuestion MCQ    `json:"aiQuestion" firestore:"aiQuestion"`
}

// ResumeSection drills the resume: one MCQ plus five gated STAR questions.
type ResumeSection struct {
	Context       string          `json:"context" firestore:"context"`
	MCQ           MCQ             `json:"mcq" firestore:"mcq"`
	OpenEnded     *OpenEnded      `json:"openEnded,omitempty" firestore:"openEnded,omitempty"`
	Feedback      *AnswerFeedback `json:"feedback,omitempty" firestore:"feedback,omitempty"`
	StarQuestions []STARQuestion  `json:"starQuestions" firestore:"starQuestions"`
}

// TechnicalSection drills the notes: one MCQ plus three coding challenges.
type TechnicalSection struct {
	Context         string           `json:"context" firestore:"context"`
	MCQ             MCQ              `json:"mcq" firestore:"mcq"`
	OpenEnded       *OpenEnded       `json:"openEnded,omitempty" firestore:"openEnded,omitempty"`
	Feedback        *AnswerFeedback  `json:"feedback,omitempty" firestore:"feedback,omitempty"`
	CodingQuestions []CodingQuestion `json:"codingQuestions" firestore:"codingQuestions"`
}

// QuizRecord is one day's full drill. Exactly one record exists per date key
// unless a forced regeneration replaces it. The record is created whole by
// the generation pipeline and afterwards mutated only through targeted
// field-level patches.
type QuizRecord struct {
	DateKey   DateKey          `json:"dateKey" firestore:"dateKey"`
	Leetcode  LeetcodeSection  `json:"leetcode" firestore:"leetcode"`
	Resume    ResumeSection    `json:"resume" firestore:"resume"`
	Technical TechnicalSection `json:"technical" firestore:"technical"`
	CreatedAt time.Time        `json:"createdAt" firestore:"createdAt"`
	ExpiresAt time.Time        `json:"expiresAt" firestore:"expiresAt"`
}

// Expired reports whether the record has passed its retention window.
func (q *QuizRecord) Expired(now time.Time) bool {
	return !q.ExpiresAt.IsZero() && now.After(q.ExpiresAt)
}

package model

import "github.com/m-mizutani/goerr/v2"

// PatchKind selects which nested field of a QuizRecord a patch targets.
type PatchKind string

const (
	// PatchStarSegment writes one Segment into
	// resume.starQuestions[Question].progress[Step].
	PatchStarSegment PatchKind = "star_segment"
	// PatchCodeResult writes one CodeResult into
	// technical.codingQuestions[Question].progress.
	PatchCodeResult PatchKind = "code_result"
	// PatchSectionFeedback writes an AnswerFeedback into
	// <Section>.feedback (legacy single-shot path).
	PatchSectionFeedback PatchKind = "section_feedback"
)

// QuizPatch addresses one nested field of a persisted QuizRecord. Patches are
// deliberately structured rather than stringly-typed paths so the two
// mutation routes (full overwrite on generation, field patch on grading)
// cannot collide on arbitrary fields: a patch can only ever touch a progress
// or feedback slot.
type QuizPatch struct {
	Kind     PatchKind
	Section  Section  // PatchSectionFeedback only
	Question int      // question index within its section
	Step     StarStep // PatchStarSegment only
}

// Validate checks the patch addresses a legal target
func (p QuizPatch) Validate() error {
	switch p.Kind {
	case PatchStarSegment:
		if p.Question < 0 || p.Question >= 5 {
			return goerr.New("star question index out of range", goerr.V("index", p.Question))
		}
		return p.Step.Validate()
	case PatchCodeResult:
		if p.Question < 0 || p.Question >= 3 {
			return goerr.New("coding question index out of range", goerr.V("index", p.Question))
		}
		return nil
	case PatchSectionFeedback:
		return p.Section.Validate()
	default:
		return goerr.New("invalid patch kind", goerr.V("kind", p.Kind))
	}
}

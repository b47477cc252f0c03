package workflow

import "fmt"

// Stage is the wizard's current logical position. Stages advance forward on
// success; the user may navigate backward at any time.
type Stage string

const (
	StageIntake      Stage = "intake"
	StageProcessing  Stage = "processing"
	StageReview      Stage = "review"
	StageTranslation Stage = "translation"
	StageSubmit      Stage = "submit"
)

var stageOrder = map[Stage]int{
	StageIntake:      0,
	StageProcessing:  1,
	StageReview:      2,
	StageTranslation: 3,
	StageSubmit:      4,
}

// ParseStage validates a stage name from the wire.
func ParseStage(raw string) (Stage, error) {
	stage := Stage(raw)
	if _, ok := stageOrder[stage]; !ok {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return stage, nil
}

// Index returns the stage's position in the forward order.
func (s Stage) Index() int {
	return stageOrder[s]
}

// Before reports whether s precedes other in the forward order.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

func (s Stage) String() string {
	return string(s)
}

// GuardError reports a stage transition whose guard condition failed. It
// carries the stage the user should be redirected to.
type GuardError struct {
	Target   Stage
	Redirect Stage
	Reason   string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("cannot enter %s: %s", e.Target, e.Reason)
}

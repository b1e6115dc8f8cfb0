package spec

import "fmt"

// Stage names a point in the toolchain where advice runs.
type Stage string

const (
	BeforePrepare  Stage = "before_prepare"
	AfterPrepare   Stage = "after_prepare"
	BeforeCompile  Stage = "before_compile"
	AfterCompile   Stage = "after_compile"
	BeforeAssemble Stage = "before_assemble"
	AfterAssemble  Stage = "after_assemble"
	BeforeLink     Stage = "before_link"
	AfterLink      Stage = "after_link"
	Cleanup        Stage = "cleanup"
)

// Advice is a callback bound to a stage.
type Advice func(sp *Spec) error

// Advise registers fn to run at stage.
func (s *Spec) Advise(stage Stage, fn Advice) {
	if s.advice == nil {
		s.advice = map[Stage][]Advice{}
	}
	s.advice[stage] = append(s.advice[stage], fn)
}

// HandleAdvice runs the advice of stage in registration order and stops at
// the first failure.
func (s *Spec) HandleAdvice(stage Stage) error {
	for _, fn := range s.advice[stage] {
		if err := fn(s); err != nil {
			return fmt.Errorf("%s advice failed: %w", stage, err)
		}
	}
	return nil
}

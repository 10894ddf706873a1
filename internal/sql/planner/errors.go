package planner

import (
	"errors"
	"fmt"
)

// ErrPlan matches every *PlanError via errors.Is.
var ErrPlan = errors.New("plan error")

// PlanError reports a statement the planner cannot evaluate. It is always
// raised before any block is read.
type PlanError struct {
	Msg string
}

func (e *PlanError) Error() string { return "planner: " + e.Msg }

func (e *PlanError) Is(target error) bool { return target == ErrPlan }

func planErrorf(format string, args ...any) *PlanError {
	return &PlanError{Msg: fmt.Sprintf(format, args...)}
}

package automator

import (
	"context"
	"fmt"
	"time"
)

// FlowLayout locates the pieces of a multi-step in-platform application.
type FlowLayout struct {
	Container string
	Fields    string
	// Continue lists the controls that move to the next step, in priority order.
	Continue       []string
	Submit         string
	Confirmation   string
	ConfirmTimeout time.Duration
}

type flowState string

const (
	stateStarted   flowState = "started"
	stateStep      flowState = "step"
	stateSubmitted flowState = "submitted"
	stateFailed    flowState = "failed"
	stateCancelled flowState = "cancelled"
)

// ApplyFlow walks an in-flow application: Started, Step 1..MaxSteps, then
// Submitted or Failed. It never runs more than MaxSteps steps.
type ApplyFlow struct {
	base     *Base
	layout   FlowLayout
	filler   *FieldFiller
	maxSteps int
}

func NewApplyFlow(base *Base, layout FlowLayout, filler *FieldFiller) *ApplyFlow {
	maxSteps := base.Deps.Limits.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 5
	}
	return &ApplyFlow{base: base, layout: layout, filler: filler, maxSteps: maxSteps}
}

func (f *ApplyFlow) Run(ctx context.Context, j *Journal) *ApplyResult {
	res := &ApplyResult{CoverLetter: f.filler.CoverLetter(), CustomAnswers: map[string]string{}}
	finish := func(state flowState, format string, args ...any) *ApplyResult {
		msg := fmt.Sprintf(format, args...)
		j.Add("state -> %s: %s", state, msg)
		switch state {
		case stateSubmitted:
			res.Success = true
			res.Outcome = OutcomeSubmitted
			res.Message = msg
		case stateCancelled:
			res.Outcome = OutcomeCancelled
			res.Error = ErrCancelled.Error()
		default:
			res.Outcome = OutcomeFailed
			res.Error = msg
		}
		res.Logs = j.Lines()
		return res
	}

	j.Add("state -> %s", stateStarted)
	if !f.base.WaitForElement(ctx, f.layout.Container, 0) {
		return finish(stateFailed, "application form did not open")
	}

	for step := 1; step <= f.maxSteps; step++ {
		if f.base.Cancelled(ctx) {
			return finish(stateCancelled, "cancelled before step %d", step)
		}
		j.Add("state -> %s %d/%d", stateStep, step, f.maxSteps)

		if container, err := f.base.Page().Query(f.layout.Container); err == nil && container != nil {
			if controls, err := container.QueryAll(f.layout.Fields); err == nil {
				for name, value := range f.filler.FillStep(ctx, controls, j) {
					res.CustomAnswers[name] = value
				}
			}
		}

		if next := f.firstPresent(f.layout.Continue); next != "" {
			if !f.base.SafeClick(ctx, next, 0) {
				return finish(stateFailed, "could not advance past step %d", step)
			}
			j.Add("advanced from step %d", step)
			continue
		}

		if f.base.Exists(f.layout.Submit) {
			if !f.base.SafeClick(ctx, f.layout.Submit, 0) {
				return finish(stateFailed, "submit control could not be clicked")
			}
			if f.base.WaitForElement(ctx, f.layout.Confirmation, f.layout.ConfirmTimeout) {
				return finish(stateSubmitted, "application submitted at step %d", step)
			}
			return finish(stateFailed, "submission was not confirmed")
		}

		return finish(stateFailed, "no continue or submit control at step %d", step)
	}

	return finish(stateFailed, "gave up after %d steps without reaching submit", f.maxSteps)
}

func (f *ApplyFlow) firstPresent(selectors []string) string {
	for _, sel := range selectors {
		if f.base.Exists(sel) {
			return sel
		}
	}
	return ""
}

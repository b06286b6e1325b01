package orders

import "github.com/darzi-doorstep/darzi-backend/pkg/enums"

// StepState marks where a timeline step sits relative to the current status.
type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepUpcoming  StepState = "upcoming"
)

// TimelineStep is one rendered entry of the order progress tracker.
type TimelineStep struct {
	Status enums.OrderStatus `json:"status"`
	Label  string            `json:"label"`
	State  StepState         `json:"state"`
}

// BuildTimeline renders the forward progression relative to status. A cancelled
// order shows the placed step followed by a terminal cancelled step.
func BuildTimeline(status enums.OrderStatus) []TimelineStep {
	if status == enums.OrderStatusCancelled {
		return []TimelineStep{
			{Status: enums.OrderStatusPending, Label: enums.OrderStatusPending.Label(), State: StepCompleted},
			{Status: enums.OrderStatusCancelled, Label: enums.OrderStatusCancelled.Label(), State: StepCurrent},
		}
	}

	current := status.Position()
	steps := make([]TimelineStep, 0, len(enums.OrderStatusProgression))
	for i, step := range enums.OrderStatusProgression {
		state := StepUpcoming
		switch {
		case i < current:
			state = StepCompleted
		case i == current:
			state = StepCurrent
			if status == enums.OrderStatusDelivered {
				state = StepCompleted
			}
		}
		steps = append(steps, TimelineStep{Status: step, Label: step.Label(), State: state})
	}
	return steps
}

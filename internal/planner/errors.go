package planner

import "errors"

var (
	// ErrWrongInputs means the requested day or meal time is not in the plan.
	ErrWrongInputs = errors.New("wrong inputs")
	// ErrMalformedMeal means the selected slot can't be turned into a swap prompt.
	ErrMalformedMeal = errors.New("malformed meal")
	// ErrCompletion wraps any failure of the completion call itself.
	ErrCompletion = errors.New("completion failed")
	// ErrInvalidModelOutput means the model answered with unusable JSON.
	ErrInvalidModelOutput = errors.New("invalid model output")
)

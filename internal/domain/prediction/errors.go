package prediction

import "errors"

// ErrPrecondition is returned when Predict is not given exactly three
// ascending observations. It signals a caller bug, not bad user input.
var ErrPrecondition = errors.New("prediction precondition violated")

package storefront

// Phase names the exact stage a view is in. A view is always in one phase and
// carries only that phase's data; there is no separate loading flag to fall
// out of sync with the error or the payload.
type Phase string

const (
	// PhaseLoading means the view is fetching its data.
	PhaseLoading Phase = "loading"
	// PhaseError means the last operation failed; Err carries the cause.
	PhaseError Phase = "error"
	// PhaseReady means the view holds current data and accepts input.
	PhaseReady Phase = "ready"
	// PhaseSubmitting means a mutation is in flight and input is locked.
	PhaseSubmitting Phase = "submitting"
	// PhaseSucceeded means the flow finished; Order holds the result.
	PhaseSucceeded Phase = "succeeded"
)

// ViewState is the tagged state of a storefront view.
type ViewState struct {
	phase Phase
	err   error
	order *Order
}

// StateLoading returns the loading state.
func StateLoading() ViewState {
	return ViewState{phase: PhaseLoading}
}

// StateError returns an error state carrying the cause.
func StateError(err error) ViewState {
	return ViewState{phase: PhaseError, err: err}
}

// StateReady returns the ready state.
func StateReady() ViewState {
	return ViewState{phase: PhaseReady}
}

// StateSubmitting returns the submitting state.
func StateSubmitting() ViewState {
	return ViewState{phase: PhaseSubmitting}
}

// StateSucceeded returns the terminal success state carrying the order.
func StateSucceeded(order Order) ViewState {
	return ViewState{phase: PhaseSucceeded, order: &order}
}

// Phase reports the current phase.
func (s ViewState) Phase() Phase {
	if s.phase == "" {
		return PhaseLoading
	}
	return s.phase
}

// Err returns the failure cause when the phase is PhaseError, nil otherwise.
func (s ViewState) Err() error {
	if s.phase != PhaseError {
		return nil
	}
	return s.err
}

// Order returns the completed order when the phase is PhaseSucceeded.
func (s ViewState) Order() (Order, bool) {
	if s.phase != PhaseSucceeded || s.order == nil {
		return Order{}, false
	}
	return *s.order, true
}

// Package mode defines the user-visible editor modes and the phases a
// transition between them moves through.
package mode

// Mode is a user-visible editor state.
type Mode string

// Supported modes.
const (
	Edit   Mode = "edit"
	Review Mode = "review"
)

// Phase is a progress stage within a mode transition.
type Phase string

// Transition phases, in order. A failed transition reports PhaseError.
const (
	PhaseStarting      Phase = "starting"
	PhaseRecalculating Phase = "recalculating"
	PhaseUpdating      Phase = "updating"
	PhaseCompleting    Phase = "completing"
	PhaseError         Phase = "error"
)

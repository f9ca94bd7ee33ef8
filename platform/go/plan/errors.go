package plan

import "fmt"

// LimitErrorCode identifies which plan cap was hit.
type LimitErrorCode string

const (
	CodeBarberLimitExceeded      LimitErrorCode = "BARBER_LIMIT_EXCEEDED"
	CodeAppointmentLimitExceeded LimitErrorCode = "APPOINTMENT_LIMIT_EXCEEDED"
)

// limitCodeFor maps a feature to its limit error code.
func limitCodeFor(feature Feature) LimitErrorCode {
	if feature == FeatureAppointments {
		return CodeAppointmentLimitExceeded
	}
	return CodeBarberLimitExceeded
}

// LimitDetail carries the structured payload the UI renders on a denial.
type LimitDetail struct {
	Current         int64    `json:"current"`
	Limit           int64    `json:"limit"`
	PlanType        PlanType `json:"planType"`
	UpgradeRequired bool     `json:"upgradeRequired"`
}

// LimitError is the recoverable, expected condition of hitting a plan cap.
// The guard captures it as inspectable state and routes it through the
// onLimit callback; it is never allowed to escape as an unhandled error.
// Backends may also return it from within an action, in which case the guard
// treats it exactly like a pre-check denial.
type LimitError struct {
	Code    LimitErrorCode `json:"code"`
	Message string         `json:"message"`
	Detail  LimitDetail    `json:"data"`
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewLimitError builds the denial for a feature from a usage snapshot.
// Exported so backends can return a cap denial from inside a guarded action.
func NewLimitError(feature Feature, usage PlanUsage) *LimitError {
	stat := usage.Stat(feature)

	message := "barber limit reached for the current plan"
	if feature == FeatureAppointments {
		message = "monthly appointment limit reached for the current plan"
	}

	return &LimitError{
		Code:    limitCodeFor(feature),
		Message: message,
		Detail: LimitDetail{
			Current:         stat.Current,
			Limit:           int64(stat.Limit),
			PlanType:        usage.PlanType,
			UpgradeRequired: usage.UpgradeRequired,
		},
	}
}

// genericLimitError is the synthesized denial used when the usage-stats call
// fails after a denial was already confirmed: zeroed counts, upgrade flagged.
func genericLimitError(feature Feature) *LimitError {
	return &LimitError{
		Code:    limitCodeFor(feature),
		Message: "plan limit reached",
		Detail:  LimitDetail{UpgradeRequired: true},
	}
}

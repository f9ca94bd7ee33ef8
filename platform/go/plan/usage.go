package plan

// PlanType identifies the subscription plan a tenant is on.
type PlanType string

const (
	PlanFree PlanType = "free"
	PlanPro  PlanType = "pro"
)

// Feature names a countable resource gated by plan limits.
type Feature string

const (
	FeatureBarbers      Feature = "barbers"
	FeatureAppointments Feature = "appointments"
)

// Limit caps a countable resource. Unlimited means no cap.
type Limit int64

// Unlimited marks a feature with no cap (pro plan).
const Unlimited Limit = -1

// IsUnlimited reports whether the limit imposes no cap.
func (l Limit) IsUnlimited() bool { return l < 0 }

// nearLimitThreshold is the utilisation percentage at which the UI starts
// recommending an upgrade.
const nearLimitThreshold = 80.0

// Limits holds the per-feature caps of a plan.
type Limits struct {
	Barbers              Limit `json:"barbers"`
	AppointmentsPerMonth Limit `json:"appointmentsPerMonth"`
}

// For returns the cap for a feature.
func (l Limits) For(feature Feature) Limit {
	if feature == FeatureAppointments {
		return l.AppointmentsPerMonth
	}
	return l.Barbers
}

// LimitsFor returns the caps for a plan type. Unknown plan types get the free
// plan caps, never unlimited access.
func LimitsFor(planType PlanType) Limits {
	if planType == PlanPro {
		return Limits{Barbers: Unlimited, AppointmentsPerMonth: Unlimited}
	}
	return Limits{Barbers: 1, AppointmentsPerMonth: 20}
}

// UsageStat captures consumption of one feature against its cap.
type UsageStat struct {
	Current    int64   `json:"current"`
	Limit      Limit   `json:"limit"`
	Remaining  int64   `json:"remaining"`
	Unlimited  bool    `json:"unlimited"`
	Percentage float64 `json:"percentage"`
	NearLimit  bool    `json:"nearLimit"`
}

// NewUsageStat derives the stat invariants from a current count and a cap:
// remaining = max(limit-current, 0) for finite caps; unlimited caps always
// allow and never report near-limit.
func NewUsageStat(current int64, limit Limit) UsageStat {
	stat := UsageStat{Current: current, Limit: limit}

	if limit.IsUnlimited() {
		stat.Unlimited = true
		return stat
	}

	remaining := int64(limit) - current
	if remaining < 0 {
		remaining = 0
	}
	stat.Remaining = remaining

	if limit > 0 {
		stat.Percentage = float64(current) / float64(limit) * 100
	}
	stat.NearLimit = stat.Percentage >= nearLimitThreshold

	return stat
}

// CanProceed reports whether one more unit of the feature fits the cap.
func (s UsageStat) CanProceed() bool {
	return s.Unlimited || s.Remaining > 0
}

// FeatureUsage groups the per-feature stats.
type FeatureUsage struct {
	Barbers      UsageStat `json:"barbers"`
	Appointments UsageStat `json:"appointments"`
}

// PlanUsage is the quota snapshot consumed by the UI and the quota guard.
// It is fetched on demand, cached with a short TTL, and never persisted.
type PlanUsage struct {
	PlanType           PlanType     `json:"planType"`
	Limits             Limits       `json:"limits"`
	Usage              FeatureUsage `json:"usage"`
	UpgradeRecommended bool         `json:"upgradeRecommended"`
	UpgradeRequired    bool         `json:"upgradeRequired"`
}

// Stat returns the usage stat for a feature.
func (u PlanUsage) Stat(feature Feature) UsageStat {
	if feature == FeatureAppointments {
		return u.Usage.Appointments
	}
	return u.Usage.Barbers
}

// BuildPlanUsage assembles a consistent PlanUsage from raw counts. This is
// the single constructor used by both the authoritative path (re-deriving
// invariants from backend counts) and the fallback synthesis path.
func BuildPlanUsage(planType PlanType, currentBarbers, currentAppointments int64) PlanUsage {
	limits := LimitsFor(planType)
	barbers := NewUsageStat(currentBarbers, limits.Barbers)
	appointments := NewUsageStat(currentAppointments, limits.AppointmentsPerMonth)

	return PlanUsage{
		PlanType:           planType,
		Limits:             limits,
		Usage:              FeatureUsage{Barbers: barbers, Appointments: appointments},
		UpgradeRecommended: barbers.NearLimit || appointments.NearLimit,
		UpgradeRequired:    planType != PlanPro && (!barbers.CanProceed() || !appointments.CanProceed()),
	}
}

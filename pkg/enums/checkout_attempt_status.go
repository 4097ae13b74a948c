package enums

import "fmt"

// CheckoutAttemptStatus tracks a hosted payment session from creation to outcome.
type CheckoutAttemptStatus string

const (
	CheckoutAttemptPending   CheckoutAttemptStatus = "pending"
	CheckoutAttemptOpen      CheckoutAttemptStatus = "open"
	CheckoutAttemptCompleted CheckoutAttemptStatus = "completed"
	CheckoutAttemptExpired   CheckoutAttemptStatus = "expired"
	CheckoutAttemptFailed    CheckoutAttemptStatus = "failed"
)

var validCheckoutAttemptStatuses = []CheckoutAttemptStatus{
	CheckoutAttemptPending,
	CheckoutAttemptOpen,
	CheckoutAttemptCompleted,
	CheckoutAttemptExpired,
	CheckoutAttemptFailed,
}

// String implements fmt.Stringer.
func (s CheckoutAttemptStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutAttemptStatus.
func (s CheckoutAttemptStatus) IsValid() bool {
	for _, candidate := range validCheckoutAttemptStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are expected.
func (s CheckoutAttemptStatus) IsTerminal() bool {
	switch s {
	case CheckoutAttemptCompleted, CheckoutAttemptExpired, CheckoutAttemptFailed:
		return true
	}
	return false
}

// ParseCheckoutAttemptStatus converts raw input into a CheckoutAttemptStatus.
func ParseCheckoutAttemptStatus(value string) (CheckoutAttemptStatus, error) {
	for _, candidate := range validCheckoutAttemptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout attempt status %q", value)
}

package domain

import "fmt"

// Tranche is the risk segment an investment belongs to. Priority is the senior,
// lower-yield slice; catalyst is the junior first-loss slice and requires the
// investor to have unlocked it through the risk questionnaire.
type Tranche int

const (
	TranchePriority Tranche = iota
	TrancheCatalyst
)

func (t Tranche) String() string {
	switch t {
	case TranchePriority:
		return "priority"
	case TrancheCatalyst:
		return "catalyst"
	}
	return fmt.Sprintf("tranche(%d)", int(t))
}

// ParseTranche converts the wire representation into a Tranche.
func ParseTranche(s string) (Tranche, error) {
	switch s {
	case "priority":
		return TranchePriority, nil
	case "catalyst":
		return TrancheCatalyst, nil
	}
	return 0, &ValidationError{Field: "tranche", Reason: fmt.Sprintf("unknown tranche %q", s)}
}

// MarshalText implements encoding.TextMarshaler for JSON payloads.
func (t Tranche) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tranche) UnmarshalText(b []byte) error {
	parsed, err := ParseTranche(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flag marks a result as normal, abnormal or not yet judged.
type Flag int

const (
	FlagPending Flag = iota
	FlagNormal
	FlagAbnormal
)

func (f Flag) String() string {
	switch f {
	case FlagNormal:
		return "normal"
	case FlagAbnormal:
		return "abnormal"
	}
	return "pending"
}

// Label is the title-case form used in exports.
func (f Flag) Label() string {
	switch f {
	case FlagNormal:
		return "Normal"
	case FlagAbnormal:
		return "Abnormal"
	}
	return "Pending"
}

// FlagFromNullable maps the stored is_normal column onto a Flag.
func FlagFromNullable(b *bool) Flag {
	switch {
	case b == nil:
		return FlagPending
	case *b:
		return FlagNormal
	}
	return FlagAbnormal
}

// Nullable is the is_normal column value for f.
func (f Flag) Nullable() *bool {
	var v bool
	switch f {
	case FlagNormal:
		v = true
	case FlagAbnormal:
		v = false
	default:
		return nil
	}
	return &v
}

func ParseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending":
		return FlagPending, nil
	case "normal":
		return FlagNormal, nil
	case "abnormal":
		return FlagAbnormal, nil
	}
	return FlagPending, fmt.Errorf("invalid flag %q: expected normal, abnormal or pending", s)
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts the flag names as well as a bare boolean or null,
// matching the is_normal column.
func (f *Flag) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = FlagPending
	case bool:
		*f = FlagFromNullable(&t)
	case string:
		parsed, err := ParseFlag(t)
		if err != nil {
			return err
		}
		*f = parsed
	default:
		return fmt.Errorf("invalid flag %s", string(b))
	}
	return nil
}

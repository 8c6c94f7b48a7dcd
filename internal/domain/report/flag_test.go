package report

import (
	"encoding/json"
	"testing"
)

func TestFlag_Nullable(t *testing.T) {
	for _, f := range []Flag{FlagPending, FlagNormal, FlagAbnormal} {
		if got := FlagFromNullable(f.Nullable()); got != f {
			t.Errorf("%s: got %s after column round trip", f, got)
		}
	}
	if FlagPending.Nullable() != nil {
		t.Error("pending should store NULL")
	}
}

func TestFlag_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Flag
	}{
		{`"normal"`, FlagNormal},
		{`"Abnormal"`, FlagAbnormal},
		{`"pending"`, FlagPending},
		{`""`, FlagPending},
		{`true`, FlagNormal},
		{`false`, FlagAbnormal},
		{`null`, FlagPending},
	}
	for _, tt := range tests {
		var f Flag
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Errorf("%s: unexpected error: %v", tt.in, err)
			continue
		}
		if f != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.in, tt.want, f)
		}
	}
}

func TestFlag_UnmarshalJSON_Invalid(t *testing.T) {
	var f Flag
	for _, in := range []string{`"borderline"`, `1`} {
		if err := json.Unmarshal([]byte(in), &f); err == nil {
			t.Errorf("%s: expected error", in)
		}
	}
}

func TestFlag_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Flag Flag `json:"flag"`
	}{FlagAbnormal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"flag":"abnormal"}` {
		t.Errorf("unexpected JSON %s", b)
	}
	if FlagAbnormal.Label() != "Abnormal" {
		t.Errorf("unexpected label %s", FlagAbnormal.Label())
	}
}

package billing

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Issue is a household issue flag selected on a reading.
type Issue string

const (
	IssueNone                    Issue = "No Issue"
	IssueMigrated                Issue = "Migrated"
	IssueWaveOff                 Issue = "Wave off"
	IssuePartialWaiveFixedCharge Issue = "Partial Waive Off - Fixed Charge"
	IssuePartialWaiveTariff      Issue = "Partial Waive Off - Tariff"
)

// Issues is the set of flags attached to a reading.
type Issues []string

// UnmarshalJSON accepts an array, a comma separated string or null.
func (s *Issues) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Issues{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := Issues{}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*s = out
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = Issues(list)
	return nil
}

func (s Issues) Has(issue Issue) bool {
	for _, v := range s {
		if strings.TrimSpace(v) == string(issue) {
			return true
		}
	}
	return false
}

// Suppressed reports whether no bill is raised for the reading.
func (s Issues) Suppressed() bool {
	return s.Has(IssueMigrated) || s.Has(IssueWaveOff)
}

// String joins the flags for display, leaving out "No Issue".
func (s Issues) String() string {
	parts := make([]string, 0, len(s))
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" && v != string(IssueNone) {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

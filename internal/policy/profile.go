package policy

import "fmt"

// UserProfile is the structured profile supplied by the extraction layer.
// It is immutable for the duration of an evaluation run.
type UserProfile struct {
	Age        int      `json:"age" mapstructure:"age"`
	Location   string   `json:"location" mapstructure:"location"`
	Income     *int64   `json:"income,omitempty" mapstructure:"income"`
	Employment string   `json:"employment,omitempty" mapstructure:"employment"`
	Interests  []string `json:"interests,omitempty" mapstructure:"interests"`
	TargetYear int      `json:"target_year" mapstructure:"target-year"`
}

// ProfileError reports a malformed profile field. A malformed profile rejects
// the whole run; the engine never guesses.
type ProfileError struct {
	Field string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("invalid profile: %s", e.Field)
}

// Validate checks the profile shape. Optional fields may be absent, but
// present values must be sane.
func (p *UserProfile) Validate() error {
	if p.Age < 0 {
		return &ProfileError{Field: "age"}
	}
	if p.Income != nil && *p.Income < 0 {
		return &ProfileError{Field: "income"}
	}
	if p.TargetYear < 1990 || p.TargetYear > 2100 {
		return &ProfileError{Field: "target_year"}
	}
	return nil
}

package policy

import (
	"encoding/json"
	"os"
	"time"
)

// BlockedPolicies is an operator-maintained list of policy names that must
// never be recommended again, typically appended after a review session.
type BlockedPolicies struct {
	Items []*BlockedPolicy
}

type BlockedPolicy struct {
	Name      string    `json:"name"`
	Reason    string    `json:"reason,omitempty"`
	BlockedAt time.Time `json:"blocked_at"`
}

// GetBlockedPoliciesFromFile loads a blocklist file. An empty file yields an
// empty list.
func GetBlockedPoliciesFromFile(path string) (*BlockedPolicies, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &BlockedPolicies{}, nil
	}

	var blocked BlockedPolicies
	if err := json.NewDecoder(file).Decode(&blocked); err != nil {
		return nil, err
	}
	return &blocked, nil
}

func (b *BlockedPolicies) Append(other *BlockedPolicies) {
	b.Items = append(b.Items, other.Items...)
}

// Add appends names not already present, stamping them with now.
func (b *BlockedPolicies) Add(names []string, reason string, now time.Time) {
	known := make(map[string]bool, len(b.Items))
	for _, item := range b.Items {
		known[NormalizeName(item.Name)] = true
	}
	for _, name := range names {
		if known[NormalizeName(name)] {
			continue
		}
		known[NormalizeName(name)] = true
		b.Items = append(b.Items, &BlockedPolicy{Name: name, Reason: reason, BlockedAt: now})
	}
}

// Names returns the normalized names on the list.
func (b *BlockedPolicies) Names() []string {
	names := make([]string, 0, len(b.Items))
	for _, item := range b.Items {
		names = append(names, NormalizeName(item.Name))
	}
	return names
}

func (b *BlockedPolicies) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

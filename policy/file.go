package policy

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/liamcoop/credit/scoring"
)

// fileTier is the YAML shape of a tier:
//
//	tiers:
//	  - name: Low
//	    when: score >= 780
//	    approved: true
//	    loan_limit: "50000"
type fileTier struct {
	Name      string `yaml:"name"`
	When      string `yaml:"when"`
	Approved  bool   `yaml:"approved"`
	LoanLimit string `yaml:"loan_limit"`
}

type fileDocument struct {
	Tiers []fileTier `yaml:"tiers"`
}

// Parse decodes a YAML policy document into tiers
func Parse(data []byte) ([]Tier, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid policy document: %w", err)
	}

	tiers := make([]Tier, 0, len(doc.Tiers))
	for i, ft := range doc.Tiers {
		limit := decimal.Zero
		if ft.LoanLimit != "" {
			var err error
			limit, err = decimal.NewFromString(ft.LoanLimit)
			if err != nil {
				return nil, fmt.Errorf("tier %d: invalid loan_limit %q: %w", i, ft.LoanLimit, err)
			}
		}
		tiers = append(tiers, Tier{
			Name:       scoring.RiskTier(ft.Name),
			Expression: ft.When,
			Approved:   ft.Approved,
			LoanLimit:  limit,
		})
	}
	return tiers, nil
}

// LoadFile reads and compiles a YAML policy file
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	tiers, err := Parse(data)
	if err != nil {
		return nil, err
	}

	p, err := New(tiers)
	if err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return p, nil
}

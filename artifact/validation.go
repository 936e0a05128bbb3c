package artifact

import (
	"fmt"
	"regexp"

	"github.com/liamcoop/credit/scoring"
)

const (
	maxColumns        = 200
	maxIdentifierSize = 100
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateColumns checks a column order read from disk: non-empty, at most 200
// entries, each a unique identifier of 1-100 characters.
// It does not check that columns are derivable from a profile; that is
// reported per call as a FeatureMismatchError.
func ValidateColumns(columns scoring.ColumnOrder) error {
	if len(columns) == 0 {
		return fmt.Errorf("column order cannot be empty")
	}
	if len(columns) > maxColumns {
		return fmt.Errorf("column order has %d entries, maximum allowed is %d", len(columns), maxColumns)
	}

	seen := make(map[string]int, len(columns))
	for i, name := range columns {
		if err := validateIdentifier(name); err != nil {
			return fmt.Errorf("invalid column %d %q: %w", i, name, err)
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("column %q appears at positions %d and %d", name, prev, i)
		}
		seen[name] = i
	}
	return nil
}

func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxIdentifierSize {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(name), maxIdentifierSize)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("must match pattern %s", identifierPattern)
	}
	return nil
}

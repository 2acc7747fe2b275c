package rules

// Impact is the severity tier of a rule or section. The three values are
// ordered: CRITICAL > HIGH > MEDIUM. Comparison is case-sensitive by
// convention; the parser keeps unknown values as-is and leaves rejection
// to the validator.
type Impact string

const (
	// ImpactCritical marks rules whose violation causes data loss or corruption.
	ImpactCritical Impact = "CRITICAL"
	// ImpactHigh marks rules whose violation causes severe performance or correctness issues.
	ImpactHigh Impact = "HIGH"
	// ImpactMedium marks rules whose violation causes maintainability or efficiency problems.
	ImpactMedium Impact = "MEDIUM"
)

// Valid reports whether the impact is one of the three enumerated tiers.
func (i Impact) Valid() bool {
	switch i {
	case ImpactCritical, ImpactHigh, ImpactMedium:
		return true
	}
	return false
}

// Rank returns the ordering position of the impact, highest severity
// first. Unknown values rank below all valid tiers.
func (i Impact) Rank() int {
	switch i {
	case ImpactCritical:
		return 3
	case ImpactHigh:
		return 2
	case ImpactMedium:
		return 1
	}
	return 0
}

// String returns the impact as its canonical upper-case token.
func (i Impact) String() string {
	return string(i)
}

// ImpactValues returns the valid tiers in severity order.
func ImpactValues() []Impact {
	return []Impact{ImpactCritical, ImpactHigh, ImpactMedium}
}

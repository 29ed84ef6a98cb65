package models

import (
	"fmt"
	"strings"
)

// ClassificationType is the fate of a deposit that is not a customer payment.
type ClassificationType string

const (
	ClassificationInternal ClassificationType = "internal" // Principal or staff money movement
	ClassificationExternal ClassificationType = "external" // Anything else
)

// IsValid checks if the classification type is known
func (t ClassificationType) IsValid() bool {
	switch t {
	case ClassificationInternal, ClassificationExternal:
		return true
	}
	return false
}

// ParseClassificationType accepts "internal" or "external" in any case.
func ParseClassificationType(s string) (ClassificationType, error) {
	t := ClassificationType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown classification %q (must be 'internal' or 'external')", s)
	}
	return t, nil
}

// Classification tags a deposit as internal or external movement.
type Classification struct {
	DepositID string
	Type      ClassificationType
	Detail    string
}

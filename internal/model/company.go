package model

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Company identifies the delivery fleet a route belongs to
type Company int

const (
	CompanyBlack Company = iota
	CompanyRed
	CompanyBlue
	CompanyGreen
	CompanyPurple
)

var companyNames = [...]string{"Black", "Red", "Blue", "Green", "Purple"}

func (c Company) String() string {
	if c < 0 || int(c) >= len(companyNames) {
		return fmt.Sprintf("Company(%d)", int(c))
	}
	return companyNames[c]
}

// Valid reports whether c is one of the known fleets
func (c Company) Valid() bool {
	return c >= 0 && int(c) < len(companyNames)
}

// ParseCompany accepts either a fleet name ("red", "Red") or its number ("1")
func ParseCompany(v any) (Company, error) {
	if c, ok := v.(Company); ok && c.Valid() {
		return c, nil
	}
	if s, ok := v.(string); ok {
		for i, name := range companyNames {
			if strings.EqualFold(strings.TrimSpace(s), name) {
				return Company(i), nil
			}
		}
	}

	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("parse company %v: %w", v, err)
	}
	c := Company(n)
	if !c.Valid() {
		return 0, fmt.Errorf("parse company %v: unknown company", v)
	}
	return c, nil
}

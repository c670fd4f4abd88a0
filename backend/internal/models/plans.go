package models

import (
	"errors"
	"strings"
)

// Currency is the only currency this deployment charges in.
const Currency = "aed"

// MinorUnitsPerMajor converts displayed prices (AED) into provider amounts (fils).
const MinorUnitsPerMajor = 100

// ErrPlanNotFound is returned when a plan is not in the catalog
var ErrPlanNotFound = errors.New("plan not found")

// Plan represents one bookable camp package. Prices are in major units.
type Plan struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Price       int      `json:"price"`
	Duration    string   `json:"duration"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
}

// AmountMinor is the amount the provider is asked to collect for the plan.
func (p Plan) AmountMinor() int64 {
	return int64(p.Price) * MinorUnitsPerMajor
}

var catalog = []Plan{
	{
		ID:          1,
		Name:        "1-Day Adventure",
		Price:       150,
		Duration:    "1 Day",
		Description: "Perfect for trying out our multi-sport experience",
		Features: []string{
			"3 different sports activities",
			"Professional coaching",
			"Lunch included",
			"All equipment provided",
			"Certificate of participation",
		},
	},
	{
		ID:          2,
		Name:        "3-Day Explorer",
		Price:       400,
		Duration:    "3 Days",
		Description: "Dive deeper into various sports and build new skills",
		Features: []string{
			"6+ different sports activities",
			"Professional coaching",
			"Daily lunch included",
			"All equipment provided",
			"Skills assessment",
			"Photo memories package",
		},
		Popular: true,
	},
	{
		ID:          3,
		Name:        "5-Day Champion",
		Price:       650,
		Duration:    "5 Days",
		Description: "Complete immersion in our multi-sport program",
		Features: []string{
			"10+ different sports activities",
			"Professional coaching",
			"Daily lunch included",
			"All equipment provided",
			"Skills assessment",
			"Photo memories package",
			"Camp t-shirt",
			"Achievement awards",
		},
	},
}

// Plans returns a copy of the static plan catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(catalog))
	for i, p := range catalog {
		p.Features = append([]string(nil), p.Features...)
		out[i] = p
	}
	return out
}

// PlanByID looks up a catalog plan by its id.
func PlanByID(id int) (Plan, error) {
	for _, p := range Plans() {
		if p.ID == id {
			return p, nil
		}
	}
	return Plan{}, ErrPlanNotFound
}

// PlanByName looks up a catalog plan by display name, ignoring case and
// surrounding whitespace.
func PlanByName(name string) (Plan, error) {
	name = strings.TrimSpace(name)
	for _, p := range Plans() {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Plan{}, ErrPlanNotFound
}

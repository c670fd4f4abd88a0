// Package booking validates the camp registration form and turns it into an
// immutable booking record for the payment step.
package booking

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
)

const (
	MinChildAge = 6
	MaxChildAge = 16
)

// Field names as used by the form and in ValidationErrors.
const (
	FieldParentName    = "parentName"
	FieldParentEmail   = "parentEmail"
	FieldParentPhone   = "parentPhone"
	FieldParentAddress = "parentAddress"
	FieldChildName     = "childName"
	FieldChildAge      = "childAge"
	FieldChildGender   = "childGender"
)

const (
	msgRequired      = "This field is required"
	msgInvalidEmail  = "Please enter a valid email address"
	msgInvalidPhone  = "Please enter a valid phone number"
	msgInvalidAge    = "Child age must be between 6 and 16"
	msgInvalidGender = "Please select a valid gender"
)

// ErrNoPlan is returned when Submit is called without a selected plan.
var ErrNoPlan = errors.New("booking: no plan selected")

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
)

// Fields is the raw form input. All values are strings as typed by the user.
type Fields struct {
	ParentName    string `json:"parentName"`
	ParentEmail   string `json:"parentEmail"`
	ParentPhone   string `json:"parentPhone"`
	ParentAddress string `json:"parentAddress"`

	ChildName   string `json:"childName"`
	ChildAge    string `json:"childAge"`
	ChildGender string `json:"childGender"`

	MedicalConditions string `json:"medicalConditions"`
	EmergencyContact  string `json:"emergencyContact"`
	EmergencyPhone    string `json:"emergencyPhone"`
	StartDate         string `json:"startDate"`
	SpecialRequests   string `json:"specialRequests"`
}

// ValidationErrors maps a form field to the message shown next to it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "booking: invalid form: " + strings.Join(parts, "; ")
}

// Validate runs every form rule and returns nil when the input is acceptable.
// Format rules only apply to non-empty values so an empty field reports the
// required error alone.
func Validate(f Fields) ValidationErrors {
	errs := ValidationErrors{}

	required := []struct {
		name  string
		value string
	}{
		{FieldParentName, f.ParentName},
		{FieldParentEmail, f.ParentEmail},
		{FieldParentPhone, f.ParentPhone},
		{FieldParentAddress, f.ParentAddress},
		{FieldChildName, f.ChildName},
		{FieldChildAge, f.ChildAge},
		{FieldChildGender, f.ChildGender},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs[r.name] = msgRequired
		}
	}

	if email := strings.TrimSpace(f.ParentEmail); email != "" && !emailPattern.MatchString(email) {
		errs[FieldParentEmail] = msgInvalidEmail
	}

	if phone := strings.TrimSpace(f.ParentPhone); phone != "" && !phonePattern.MatchString(phone) {
		errs[FieldParentPhone] = msgInvalidPhone
	}

	if age := strings.TrimSpace(f.ChildAge); age != "" {
		if _, ok := parseAge(age); !ok {
			errs[FieldChildAge] = msgInvalidAge
		}
	}

	if gender := strings.TrimSpace(f.ChildGender); gender != "" && !models.Gender(strings.ToLower(gender)).Valid() {
		errs[FieldChildGender] = msgInvalidGender
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submit validates the form and, when every rule passes, returns the booking
// record for the selected plan. On failure the error is a ValidationErrors.
func Submit(f Fields, plan *models.Plan) (models.Booking, error) {
	if plan == nil {
		return models.Booking{}, ErrNoPlan
	}
	if errs := Validate(f); errs != nil {
		return models.Booking{}, errs
	}

	age, _ := parseAge(strings.TrimSpace(f.ChildAge))

	return models.Booking{
		Reference:         uuid.NewString(),
		ParentName:        strings.TrimSpace(f.ParentName),
		ParentEmail:       strings.TrimSpace(f.ParentEmail),
		ParentPhone:       strings.TrimSpace(f.ParentPhone),
		ParentAddress:     strings.TrimSpace(f.ParentAddress),
		ChildName:         strings.TrimSpace(f.ChildName),
		ChildAge:          age,
		ChildGender:       models.Gender(strings.ToLower(strings.TrimSpace(f.ChildGender))),
		MedicalConditions: strings.TrimSpace(f.MedicalConditions),
		EmergencyContact:  strings.TrimSpace(f.EmergencyContact),
		EmergencyPhone:    strings.TrimSpace(f.EmergencyPhone),
		StartDate:         strings.TrimSpace(f.StartDate),
		SpecialRequests:   strings.TrimSpace(f.SpecialRequests),
		Plan:              *plan,
	}, nil
}

func parseAge(raw string) (int, bool) {
	age, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return age, age >= MinChildAge && age <= MaxChildAge
}

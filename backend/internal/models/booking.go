package models

// Gender values accepted by the booking form.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the accepted values.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Booking is the validated record handed from the booking form to the payment
// step. It is never mutated after creation.
type Booking struct {
	Reference string `json:"reference"`

	ParentName    string `json:"parentName"`
	ParentEmail   string `json:"parentEmail"`
	ParentPhone   string `json:"parentPhone"`
	ParentAddress string `json:"parentAddress"`

	ChildName   string `json:"childName"`
	ChildAge    int    `json:"childAge"`
	ChildGender Gender `json:"childGender"`

	MedicalConditions string `json:"medicalConditions,omitempty"`
	EmergencyContact  string `json:"emergencyContact,omitempty"`
	EmergencyPhone    string `json:"emergencyPhone,omitempty"`
	StartDate         string `json:"startDate,omitempty"`
	SpecialRequests   string `json:"specialRequests,omitempty"`

	Plan Plan `json:"plan"`
}

// PaymentMetadata is the metadata attached to the payment intent for this booking.
func (b Booking) PaymentMetadata() map[string]string {
	md := map[string]string{
		"childName": b.ChildName,
		"planName":  b.Plan.Name,
		"email":     b.ParentEmail,
	}
	if b.Reference != "" {
		md["bookingReference"] = b.Reference
	}
	return md
}

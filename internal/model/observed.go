package model

// SourceKind tags which class of external source produced an observation.
type SourceKind string

const (
	SourceRegistry SourceKind = "registry"
	SourceWeb      SourceKind = "web"
	SourceDocument SourceKind = "document"
)

// Address groups the comparable address sub-fields. Empty string means the
// field was not observed.
type Address struct {
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// Empty reports whether no comparable sub-field is populated.
func (a Address) Empty() bool {
	return a.Line1 == "" && a.City == "" && a.State == "" && a.ZipCode == ""
}

// ObservedRecord is one source's view of a provider. Every field is optional;
// an empty string or nil slice means the source did not report it. Observed
// records are ephemeral: produced by one adapter call, consumed once.
type ObservedRecord struct {
	Kind       SourceKind `json:"kind"`
	Confidence float64    `json:"confidence"` // source-reported base confidence in [0,1]

	NPI        string `json:"npi,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`

	Phone   string  `json:"phone,omitempty"`
	Email   string  `json:"email,omitempty"`
	Address Address `json:"address,omitempty"`

	Specialty   string   `json:"specialty,omitempty"`
	Specialties []string `json:"specialties,omitempty"` // web keyword hits
	Taxonomies  []string `json:"taxonomies,omitempty"`  // registry taxonomy descriptions

	PracticeName  string `json:"practice_name,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
	LicenseState  string `json:"license_state,omitempty"`

	BoardCertifications []string `json:"board_certifications,omitempty"`
	Education           []string `json:"education,omitempty"`

	// FieldConfidences carries per-field base confidences for sources that
	// score fields individually (the web adapter). When absent, Confidence
	// applies to every field.
	FieldConfidences map[string]float64 `json:"field_confidences,omitempty"`
}

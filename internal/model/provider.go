package model

import (
	"strings"
	"time"
)

// ProviderStatus represents the lifecycle state of a provider record.
type ProviderStatus string

const (
	ProviderStatusPending     ProviderStatus = "pending"
	ProviderStatusValidated   ProviderStatus = "validated"
	ProviderStatusNeedsReview ProviderStatus = "needs_review"
	ProviderStatusRejected    ProviderStatus = "rejected"
)

// Provider is the on-file directory record for a single practitioner.
type Provider struct {
	ID           string `json:"id"`
	NPI          string `json:"npi,omitempty"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MiddleName   string `json:"middle_name,omitempty"`
	Specialty    string `json:"specialty,omitempty"`
	PracticeName string `json:"practice_name,omitempty"`

	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`

	LicenseNumber string `json:"license_number,omitempty"`
	LicenseState  string `json:"license_state,omitempty"`

	BoardCertifications []string `json:"board_certifications,omitempty"`
	Education           []string `json:"education,omitempty"`
	InsuranceNetworks   []string `json:"insurance_networks,omitempty"`
	Affiliations        []string `json:"affiliations,omitempty"`

	Status    ProviderStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FullName joins the present name parts with single spaces.
func (p Provider) FullName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.FirstName, p.MiddleName, p.LastName} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Address returns the on-file address fields as an Address value.
func (p Provider) Address() Address {
	return Address{
		Line1:   p.AddressLine1,
		Line2:   p.AddressLine2,
		City:    p.City,
		State:   p.State,
		ZipCode: p.ZipCode,
	}
}

package source

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultSpecialties returns the built-in specialty keyword list the web
// adapter scans page text for.
func DefaultSpecialties() []string {
	return []string{
		"Cardiology", "Dermatology", "Endocrinology", "Gastroenterology",
		"Hematology", "Infectious Disease", "Nephrology", "Neurology",
		"Oncology", "Pulmonology", "Rheumatology", "Urology",
		"Family Medicine", "Internal Medicine", "Pediatrics", "Psychiatry",
		"Surgery", "Orthopedics", "Ophthalmology", "Otolaryngology",
	}
}

type specialtyFile struct {
	Specialties []string `yaml:"specialties"`
}

// LoadSpecialties reads a specialty keyword list from a YAML file with a
// top-level `specialties` sequence.
func LoadSpecialties(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "source: read specialties file")
	}

	var f specialtyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "source: unmarshal specialties file")
	}
	if len(f.Specialties) == 0 {
		return nil, eris.New("source: specialties file is empty")
	}
	return f.Specialties, nil
}

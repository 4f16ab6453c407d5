package intake

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/sells-group/directory-cli/internal/model"
)

var medicalSpecialties = []string{
	"Cardiology", "Dermatology", "Endocrinology", "Family Medicine",
	"Gastroenterology", "Hematology", "Internal Medicine", "Neurology",
	"Oncology", "Orthopedics", "Pediatrics", "Psychiatry",
	"Pulmonology", "Rheumatology", "Surgery", "Urology",
	"Ophthalmology", "Otolaryngology", "Anesthesiology", "Emergency Medicine",
}

var certBoards = []string{"ABIM", "ABFM", "ABP", "ABMS", "ABPN"}

// Generator produces synthetic provider records for local testing and demos.
// With ErrorRate > 0 a fraction of records carries deliberately bad data
// (truncated phones, invalid email domains, stale addresses) so validation
// runs have something to find.
type Generator struct {
	faker     *gofakeit.Faker
	rng       *rand.Rand
	errorRate float64
}

// NewGenerator creates a seeded generator. The same seed yields the same
// dataset.
func NewGenerator(seed uint64, errorRate float64) *Generator {
	return &Generator{
		faker:     gofakeit.New(seed),
		rng:       rand.New(rand.NewSource(int64(seed))),
		errorRate: errorRate,
	}
}

// Generate returns count synthetic providers.
func (g *Generator) Generate(count int) []model.Provider {
	providers := make([]model.Provider, 0, count)
	for i := 0; i < count; i++ {
		providers = append(providers, g.one(g.rng.Float64() < g.errorRate))
	}
	return providers
}

func (g *Generator) one(withErrors bool) model.Provider {
	firstName := g.faker.FirstName()
	lastName := g.faker.LastName()
	city := g.faker.City()
	state := g.faker.StateAbr()
	specialty := medicalSpecialties[g.rng.Intn(len(medicalSpecialties))]

	p := model.Provider{
		NPI:           g.digits(10),
		FirstName:     firstName,
		LastName:      lastName,
		Specialty:     specialty,
		Phone:         g.phone(),
		Email:         fmt.Sprintf("%s.%s@%s", strings.ToLower(firstName), strings.ToLower(lastName), g.faker.DomainName()),
		AddressLine1:  g.faker.Street(),
		City:          city,
		State:         state,
		ZipCode:       g.faker.Zip(),
		LicenseNumber: g.licenseNumber(),
		LicenseState:  state,
		Status:        model.ProviderStatusPending,
	}

	if g.rng.Float64() > 0.5 {
		p.MiddleName = g.faker.FirstName()
	}
	if g.rng.Float64() > 0.3 {
		p.PracticeName = fmt.Sprintf("%s %s Associates", city, specialty)
	}
	if g.rng.Float64() > 0.7 {
		p.AddressLine2 = fmt.Sprintf("Suite %d", g.rng.Intn(900)+100)
	}

	for i, n := 0, g.rng.Intn(4); i < n; i++ {
		board := certBoards[g.rng.Intn(len(certBoards))]
		if !contains(p.BoardCertifications, board) {
			p.BoardCertifications = append(p.BoardCertifications, board)
		}
	}
	for i, n := 0, g.rng.Intn(3)+1; i < n; i++ {
		if g.rng.Float64() > 0.5 {
			p.Education = append(p.Education, g.faker.Company()+" Medical School")
		} else {
			p.Education = append(p.Education, g.faker.State()+" University School of Medicine")
		}
	}

	p.InsuranceNetworks = []string{"Medicare", "Medicaid"}
	for _, network := range []string{"Blue Cross Blue Shield", "Aetna", "UnitedHealthcare"} {
		if g.rng.Float64() > 0.5 {
			p.InsuranceNetworks = append(p.InsuranceNetworks, network)
		}
	}
	if g.rng.Float64() > 0.5 {
		p.Affiliations = []string{city + " Hospital"}
	}

	if withErrors {
		g.inject(&p)
	}
	return p
}

// inject degrades a record the way real directory data goes stale.
func (g *Generator) inject(p *model.Provider) {
	if g.rng.Float64() > 0.7 {
		p.Phone = p.Phone[:len(p.Phone)-1] // truncated during data entry
	}
	if g.rng.Float64() > 0.7 {
		p.Email = fmt.Sprintf("%s.%s@invalid",
			strings.ToLower(p.FirstName), strings.ToLower(p.LastName))
	}
	if g.rng.Float64() > 0.6 {
		p.AddressLine1 = fmt.Sprintf("%d Old Street", g.rng.Intn(9900)+100)
	}
}

func (g *Generator) digits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d", g.rng.Intn(10))
	}
	return b.String()
}

func (g *Generator) phone() string {
	return fmt.Sprintf("%d%d%d-%d%d%d-%d%d%d%d",
		g.rng.Intn(8)+2, g.rng.Intn(10), g.rng.Intn(10),
		g.rng.Intn(10), g.rng.Intn(10), g.rng.Intn(10),
		g.rng.Intn(10), g.rng.Intn(10), g.rng.Intn(10), g.rng.Intn(10))
}

func (g *Generator) licenseNumber() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteByte(alphabet[g.rng.Intn(len(alphabet))])
	}
	return b.String()
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// Package intake brings provider records into the store: roster files
// (CSV/XLSX/JSON/XML, optionally zipped), remote roster downloads, and
// synthetic datasets for local testing.
package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/fetcher"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/store"
)

// rosterColumns maps normalized header names to provider fields. Roster
// exports from different systems disagree on capitalization and spacing, so
// headers are lowercased with spaces collapsed to underscores before lookup.
var rosterColumns = map[string]func(*model.Provider, string){
	"npi":            func(p *model.Provider, v string) { p.NPI = v },
	"first_name":     func(p *model.Provider, v string) { p.FirstName = v },
	"last_name":      func(p *model.Provider, v string) { p.LastName = v },
	"middle_name":    func(p *model.Provider, v string) { p.MiddleName = v },
	"specialty":      func(p *model.Provider, v string) { p.Specialty = v },
	"practice_name":  func(p *model.Provider, v string) { p.PracticeName = v },
	"phone":          func(p *model.Provider, v string) { p.Phone = v },
	"email":          func(p *model.Provider, v string) { p.Email = v },
	"address_line1":  func(p *model.Provider, v string) { p.AddressLine1 = v },
	"address_line2":  func(p *model.Provider, v string) { p.AddressLine2 = v },
	"city":           func(p *model.Provider, v string) { p.City = v },
	"state":          func(p *model.Provider, v string) { p.State = v },
	"zip_code":       func(p *model.Provider, v string) { p.ZipCode = v },
	"zip":            func(p *model.Provider, v string) { p.ZipCode = v },
	"license_number": func(p *model.Provider, v string) { p.LicenseNumber = v },
	"license_state":  func(p *model.Provider, v string) { p.LicenseState = v },
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	return strings.ReplaceAll(h, " ", "_")
}

// rosterRow is the JSON shape of one provider in a roster export.
type rosterRow struct {
	NPI                 string   `json:"npi"`
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name"`
	MiddleName          string   `json:"middle_name"`
	Specialty           string   `json:"specialty"`
	PracticeName        string   `json:"practice_name"`
	Phone               string   `json:"phone"`
	Email               string   `json:"email"`
	AddressLine1        string   `json:"address_line1"`
	AddressLine2        string   `json:"address_line2"`
	City                string   `json:"city"`
	State               string   `json:"state"`
	ZipCode             string   `json:"zip_code"`
	LicenseNumber       string   `json:"license_number"`
	LicenseState        string   `json:"license_state"`
	BoardCertifications []string `json:"board_certifications"`
	Education           []string `json:"education"`
	InsuranceNetworks   []string `json:"insurance_networks"`
	Affiliations        []string `json:"affiliations"`
}

func (r rosterRow) provider() model.Provider {
	return model.Provider{
		NPI:                 r.NPI,
		FirstName:           r.FirstName,
		LastName:            r.LastName,
		MiddleName:          r.MiddleName,
		Specialty:           r.Specialty,
		PracticeName:        r.PracticeName,
		Phone:               r.Phone,
		Email:               r.Email,
		AddressLine1:        r.AddressLine1,
		AddressLine2:        r.AddressLine2,
		City:                r.City,
		State:               r.State,
		ZipCode:             r.ZipCode,
		LicenseNumber:       r.LicenseNumber,
		LicenseState:        r.LicenseState,
		BoardCertifications: r.BoardCertifications,
		Education:           r.Education,
		InsuranceNetworks:   r.InsuranceNetworks,
		Affiliations:        r.Affiliations,
	}
}

// ParseRoster reads a roster file into provider records. The format is
// chosen by extension: .csv, .xlsx, .json, .xml, or .zip containing one of
// those.
func ParseRoster(ctx context.Context, path string) ([]model.Provider, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseCSVRoster(ctx, path)
	case ".xlsx":
		return parseXLSXRoster(path)
	case ".json":
		return parseJSONRoster(ctx, path)
	case ".xml":
		return parseXMLRoster(ctx, path)
	case ".zip":
		inner, err := fetcher.Unzip(path, filepath.Dir(path))
		if err != nil {
			return nil, eris.Wrapf(err, "intake: extract roster archive %s", path)
		}
		defer os.Remove(inner)
		return ParseRoster(ctx, inner)
	default:
		return nil, eris.Errorf("intake: unsupported roster format %q", filepath.Ext(path))
	}
}

func parseCSVRoster(ctx context.Context, path string) ([]model.Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: open roster %s", path)
	}
	defer f.Close()

	table, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "intake: parse roster %s", path)
	}
	return tableToProviders(table), nil
}

func parseXLSXRoster(path string) ([]model.Provider, error) {
	table, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "intake: parse roster %s", path)
	}
	return tableToProviders(table), nil
}

func tableToProviders(t *fetcher.Table) []model.Provider {
	setters := make([]func(*model.Provider, string), len(t.Header))
	for i, h := range t.Header {
		setters[i] = rosterColumns[normalizeHeader(h)]
	}

	providers := make([]model.Provider, 0, len(t.Rows))
	for _, row := range t.Rows {
		providers = append(providers, rowToProvider(row, setters))
	}
	return providers
}

func parseJSONRoster(ctx context.Context, path string) ([]model.Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: open roster %s", path)
	}
	defer f.Close()

	rows, err := fetcher.DecodeJSONArray[rosterRow](ctx, f)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: parse roster %s", path)
	}

	providers := make([]model.Provider, 0, len(rows))
	for _, row := range rows {
		providers = append(providers, row.provider())
	}
	return providers, nil
}

// xmlRosterRow is the shape of one <provider> element in an XML roster export.
type xmlRosterRow struct {
	NPI           string `xml:"npi"`
	FirstName     string `xml:"first_name"`
	LastName      string `xml:"last_name"`
	MiddleName    string `xml:"middle_name"`
	Specialty     string `xml:"specialty"`
	PracticeName  string `xml:"practice_name"`
	Phone         string `xml:"phone"`
	Email         string `xml:"email"`
	AddressLine1  string `xml:"address_line1"`
	AddressLine2  string `xml:"address_line2"`
	City          string `xml:"city"`
	State         string `xml:"state"`
	ZipCode       string `xml:"zip_code"`
	LicenseNumber string `xml:"license_number"`
	LicenseState  string `xml:"license_state"`
}

func parseXMLRoster(ctx context.Context, path string) ([]model.Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: open roster %s", path)
	}
	defer f.Close()

	rows, err := fetcher.DecodeXML[xmlRosterRow](ctx, f, "provider")
	if err != nil {
		return nil, eris.Wrapf(err, "intake: parse roster %s", path)
	}

	providers := make([]model.Provider, 0, len(rows))
	for _, row := range rows {
		providers = append(providers, model.Provider{
			NPI:           row.NPI,
			FirstName:     row.FirstName,
			LastName:      row.LastName,
			MiddleName:    row.MiddleName,
			Specialty:     row.Specialty,
			PracticeName:  row.PracticeName,
			Phone:         row.Phone,
			Email:         row.Email,
			AddressLine1:  row.AddressLine1,
			AddressLine2:  row.AddressLine2,
			City:          row.City,
			State:         row.State,
			ZipCode:       row.ZipCode,
			LicenseNumber: row.LicenseNumber,
			LicenseState:  row.LicenseState,
		})
	}
	return providers, nil
}

func rowToProvider(row []string, setters []func(*model.Provider, string)) model.Provider {
	var p model.Provider
	for i, cell := range row {
		if i >= len(setters) || setters[i] == nil {
			continue
		}
		if v := strings.TrimSpace(cell); v != "" {
			setters[i](&p, v)
		}
	}
	return p
}

// bulkImporter is implemented by stores with a COPY-based fast path.
type bulkImporter interface {
	BulkImportProviders(ctx context.Context, providers []model.Provider) (int64, error)
}

// Import writes parsed providers into the store. Stores exposing a bulk path
// get the whole roster in one upsert; otherwise rows are created
// one-at-a-time and NPI duplicates are skipped.
func Import(ctx context.Context, st store.Store, providers []model.Provider) (int, error) {
	if bulk, ok := st.(bulkImporter); ok {
		n, err := bulk.BulkImportProviders(ctx, providers)
		return int(n), eris.Wrap(err, "intake: bulk import")
	}

	imported := 0
	for i := range providers {
		p := providers[i]
		if p.NPI != "" {
			if existing, err := st.GetProviderByNPI(ctx, p.NPI); err == nil && existing != nil {
				zap.L().Debug("skipping duplicate roster row",
					zap.String("npi", p.NPI))
				continue
			}
		}
		if err := st.CreateProvider(ctx, &p); err != nil {
			return imported, eris.Wrapf(err, "intake: import provider %s %s", p.FirstName, p.LastName)
		}
		imported++
	}

	zap.L().Info("roster imported", zap.Int("providers", imported))
	return imported, nil
}

package source

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/ocr"
	"github.com/sells-group/directory-cli/pkg/anthropic"
)

// Document extraction base confidences. Model-assisted parsing reads layout
// and context; the label-scanning fallback does not, hence the lower score.
const (
	docConfModel = 0.85
	docConfOCR   = 0.70
)

const docExtractionPrompt = `Extract provider information from this credential document text. Return a JSON object with these fields (null when not found):
first_name, last_name, middle_name, npi, phone, email, address_line1, address_line2, city, state, zip_code, specialty, license_number, license_state, practice_name, board_certifications (array), education (array).
Return only valid JSON, no prose.`

// DocumentAdapter extracts observed records from credential PDFs. When a
// model client is configured it parses the OCR text with the model;
// otherwise it falls back to label scanning.
type DocumentAdapter struct {
	extractor ocr.Extractor
	llm       anthropic.Client
	llmModel  string
}

// NewDocumentAdapter creates a document adapter. llm may be nil, in which
// case only the OCR fallback path is used.
func NewDocumentAdapter(extractor ocr.Extractor, llm anthropic.Client, llmModel string) *DocumentAdapter {
	return &DocumentAdapter{
		extractor: extractor,
		llm:       llm,
		llmModel:  llmModel,
	}
}

// Extract pulls text from the document and parses it into an observed
// record. Confidence is fixed per extraction path: 0.85 model-assisted,
// 0.70 OCR label scanning.
func (a *DocumentAdapter) Extract(ctx context.Context, path string) (*model.ObservedRecord, error) {
	text, err := a.extractor.ExtractText(ctx, path)
	if err != nil {
		return nil, &Error{Kind: model.SourceDocument, Err: err}
	}

	if a.llm != nil {
		obs, err := a.extractWithModel(ctx, text)
		if err == nil {
			return obs, nil
		}
		zap.L().Warn("model extraction failed, falling back to label scan",
			zap.String("path", path),
			zap.Error(err),
		)
	}

	obs := parseLabeledText(text)
	obs.Confidence = docConfOCR
	return obs, nil
}

type docPayload struct {
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name"`
	MiddleName          string   `json:"middle_name"`
	NPI                 string   `json:"npi"`
	Phone               string   `json:"phone"`
	Email               string   `json:"email"`
	AddressLine1        string   `json:"address_line1"`
	AddressLine2        string   `json:"address_line2"`
	City                string   `json:"city"`
	State               string   `json:"state"`
	ZipCode             string   `json:"zip_code"`
	Specialty           string   `json:"specialty"`
	LicenseNumber       string   `json:"license_number"`
	LicenseState        string   `json:"license_state"`
	PracticeName        string   `json:"practice_name"`
	BoardCertifications []string `json:"board_certifications"`
	Education           []string `json:"education"`
}

func (a *DocumentAdapter) extractWithModel(ctx context.Context, text string) (*model.ObservedRecord, error) {
	resp, err := a.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.llmModel,
		MaxTokens: 1024,
		System:    docExtractionPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogUsage(a.llmModel, "document_extraction")

	var p docPayload
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Text)), &p); err != nil {
		return nil, err
	}

	return &model.ObservedRecord{
		Kind:       model.SourceDocument,
		Confidence: docConfModel,
		NPI:        p.NPI,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		MiddleName: p.MiddleName,
		Phone:      p.Phone,
		Email:      p.Email,
		Address: model.Address{
			Line1:   p.AddressLine1,
			Line2:   p.AddressLine2,
			City:    p.City,
			State:   p.State,
			ZipCode: p.ZipCode,
		},
		Specialty:           p.Specialty,
		PracticeName:        p.PracticeName,
		LicenseNumber:       p.LicenseNumber,
		LicenseState:        p.LicenseState,
		BoardCertifications: p.BoardCertifications,
		Education:           p.Education,
	}, nil
}

// stripCodeFence removes a surrounding markdown code fence, if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var docLabelRe = regexp.MustCompile(`(?im)^\s*(name|npi|phone|telephone|email|address|city|state|zip|specialty|license)\s*[:#]\s*(.+)$`)

// parseLabeledText scans OCR output for "Label: value" lines.
func parseLabeledText(text string) *model.ObservedRecord {
	obs := &model.ObservedRecord{Kind: model.SourceDocument}

	for _, m := range docLabelRe.FindAllStringSubmatch(text, -1) {
		label := strings.ToLower(m[1])
		value := strings.TrimSpace(m[2])
		if value == "" {
			continue
		}
		switch label {
		case "name":
			first, last := splitName(value)
			if obs.FirstName == "" {
				obs.FirstName, obs.LastName = first, last
			}
		case "npi":
			obs.NPI = value
		case "phone", "telephone":
			obs.Phone = value
		case "email":
			obs.Email = value
		case "address":
			if obs.Address.Line1 == "" {
				obs.Address.Line1 = value
			}
		case "city":
			obs.Address.City = value
		case "state":
			obs.Address.State = value
		case "zip":
			obs.Address.ZipCode = value
		case "specialty":
			obs.Specialty = value
		case "license":
			obs.LicenseNumber = value
		}
	}

	return obs
}

func splitName(full string) (first, last string) {
	// Drop a leading honorific and trailing credential ("Dr. Jane Doe, MD").
	full = strings.TrimSpace(full)
	if i := strings.Index(full, ","); i >= 0 {
		full = full[:i]
	}
	fields := strings.Fields(strings.TrimPrefix(full, "Dr. "))
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[len(fields)-1]
}

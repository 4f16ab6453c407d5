package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/pkg/anthropic"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

type fakeLLM struct {
	text string
	err  error
}

func (f *fakeLLM) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{Text: f.text}, nil
}

const credentialText = `State Medical Board Credential Packet
Name: Dr. Jane A Doe, MD
NPI: 1234567890
Phone: (555) 123-4567
Email: jane.doe@example.com
Address: 1 A St
City: Springfield
State: CA
Zip: 90001
Specialty: Cardiology
License: C1234
`

func TestExtract_ModelAssisted(t *testing.T) {
	llm := &fakeLLM{text: "```json\n" + `{"first_name":"Jane","last_name":"Doe","npi":"1234567890","phone":"555-123-4567","specialty":"Cardiology","city":"Springfield"}` + "\n```"}
	a := NewDocumentAdapter(&fakeExtractor{text: credentialText}, llm, "claude-haiku-4-5-20251001")

	obs, err := a.Extract(context.Background(), "packet.pdf")
	require.NoError(t, err)

	assert.Equal(t, model.SourceDocument, obs.Kind)
	assert.Equal(t, 0.85, obs.Confidence)
	assert.Equal(t, "Jane", obs.FirstName)
	assert.Equal(t, "1234567890", obs.NPI)
	assert.Equal(t, "Springfield", obs.Address.City)
}

func TestExtract_FallsBackToLabelScan(t *testing.T) {
	a := NewDocumentAdapter(&fakeExtractor{text: credentialText}, &fakeLLM{err: errors.New("model unavailable")}, "m")

	obs, err := a.Extract(context.Background(), "packet.pdf")
	require.NoError(t, err)

	assert.Equal(t, 0.70, obs.Confidence)
	assert.Equal(t, "Jane", obs.FirstName)
	assert.Equal(t, "Doe", obs.LastName)
	assert.Equal(t, "(555) 123-4567", obs.Phone)
	assert.Equal(t, "Cardiology", obs.Specialty)
	assert.Equal(t, "C1234", obs.LicenseNumber)
	assert.Equal(t, "90001", obs.Address.ZipCode)
}

func TestExtract_NoModelConfigured(t *testing.T) {
	a := NewDocumentAdapter(&fakeExtractor{text: credentialText}, nil, "")

	obs, err := a.Extract(context.Background(), "packet.pdf")
	require.NoError(t, err)
	assert.Equal(t, 0.70, obs.Confidence)
}

func TestExtract_OCRFailureWrapped(t *testing.T) {
	a := NewDocumentAdapter(&fakeExtractor{err: errors.New("corrupt pdf")}, nil, "")

	_, err := a.Extract(context.Background(), "bad.pdf")
	require.Error(t, err)

	var srcErr *Error
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, model.SourceDocument, srcErr.Kind)
}

func TestSplitName(t *testing.T) {
	first, last := splitName("Dr. Jane A Doe, MD")
	assert.Equal(t, "Jane", first)
	assert.Equal(t, "Doe", last)
}

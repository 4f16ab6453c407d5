package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// ReviewPage is one row in the manual review queue database. Each page
// represents a provider flagged for human follow-up, ranked by priority.
type ReviewPage struct {
	ProviderName string
	NPI          string
	Specialty    string
	State        string
	Priority     float64
	QualityScore float64
	Confidence   float64
	Issues       []string
}

// SyncReviewQueue pushes review candidates into the Notion database at dbID.
// Existing pages are matched by NPI and updated in place so re-running a
// sync never duplicates a provider; candidates without an NPI are always
// created fresh. Returns counts of pages created and updated.
func SyncReviewQueue(ctx context.Context, c Client, dbID string, reviews []ReviewPage) (created, updated int, err error) {
	existing, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return 0, 0, eris.Wrap(err, "notion: list review queue")
	}

	byNPI := make(map[string]notionapi.ObjectID, len(existing))
	for _, p := range existing {
		if npi := pageNPI(p); npi != "" {
			byNPI[npi] = p.ID
		}
	}

	for _, r := range reviews {
		if ctx.Err() != nil {
			return created, updated, eris.Wrap(ctx.Err(), "notion: review queue sync cancelled")
		}

		props := buildReviewProperties(r)

		if pageID, ok := byNPI[r.NPI]; ok && r.NPI != "" {
			if _, err := c.UpdatePage(ctx, string(pageID), &notionapi.PageUpdateRequest{Properties: props}); err != nil {
				return created, updated, eris.Wrap(err, fmt.Sprintf("notion: update review page for npi %s", r.NPI))
			}
			updated++
			continue
		}

		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: props,
		}
		if _, err := c.CreatePage(ctx, req); err != nil {
			return created, updated, eris.Wrap(err, fmt.Sprintf("notion: create review page for %s", r.ProviderName))
		}
		created++
	}

	return created, updated, nil
}

// buildReviewProperties converts a ReviewPage to Notion page properties.
// New and updated pages both get Status "Open"; a re-synced provider that a
// reviewer had resolved is back in the queue because it was flagged again.
func buildReviewProperties(r ReviewPage) notionapi.Properties {
	return notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: r.ProviderName}},
			},
		},
		"NPI":       richTextProp(r.NPI),
		"Specialty": richTextProp(r.Specialty),
		"State":     richTextProp(r.State),
		"Issues":    richTextProp(strings.Join(r.Issues, "; ")),
		"Priority": notionapi.NumberProperty{
			Number: r.Priority,
		},
		"Quality Score": notionapi.NumberProperty{
			Number: r.QualityScore,
		},
		"Confidence": notionapi.NumberProperty{
			Number: r.Confidence,
		},
		"Status": notionapi.StatusProperty{
			Status: notionapi.Status{
				Name: "Open",
			},
		},
	}
}

func richTextProp(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
		},
	}
}

// pageNPI extracts the NPI rich_text property from a queue page, or "" if
// the page has none.
func pageNPI(p notionapi.Page) string {
	prop, ok := p.Properties["NPI"]
	if !ok {
		return ""
	}
	rtp, ok := prop.(*notionapi.RichTextProperty)
	if !ok {
		return ""
	}
	return strings.TrimSpace(plainText(rtp.RichText))
}

// plainText concatenates the plain text of a rich text array.
func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

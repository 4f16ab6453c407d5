package fetcher

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeJSONArray decodes a top-level JSON array of roster records. Input
// must be of the form [{...},{...}]; an empty array yields an empty slice.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) ([]T, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read json roster")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, eris.Errorf("fetcher: json roster must be an array, got %v", tok)
	}

	var records []T
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "fetcher: json decode cancelled")
		}
		var rec T
		if err := dec.Decode(&rec); err != nil {
			return nil, eris.Wrap(err, "fetcher: decode json record")
		}
		records = append(records, rec)
	}
	return records, nil
}

// DecodeXML collects every XML element named element into a slice of T.
// Non-UTF-8 encodings declared in the prolog are handled; older state
// board exports still ship ISO-8859-1.
func DecodeXML[T any](ctx context.Context, r io.Reader, element string) ([]T, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: unsupported xml charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var records []T
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "fetcher: xml decode cancelled")
		}

		tok, err := dec.Token()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read xml token")
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != element {
			continue
		}

		var rec T
		if err := dec.DecodeElement(&rec, &start); err != nil {
			return nil, eris.Wrapf(err, "fetcher: decode xml element %q", element)
		}
		records = append(records, rec)
	}
}

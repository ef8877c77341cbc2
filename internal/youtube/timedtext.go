package youtube

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"clipquery.app/backend/internal/transcript"
)

// timedtext caption markup: <transcript><text start="1.0" dur="2.5">..</text></transcript>
type timedTextDoc struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedTextRow `xml:"text"`
}

type timedTextRow struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Body  string `xml:",chardata"`
}

// parseTimedText decodes caption markup into raw captions. A malformed
// numeric field aborts the whole parse rather than skipping the entry; a
// partially numeric transcript is worse than none.
func parseTimedText(data []byte) ([]transcript.RawCaption, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid caption markup: %w", err)
	}

	captions := make([]transcript.RawCaption, 0, len(doc.Texts))
	for _, row := range doc.Texts {
		start, err := strconv.ParseFloat(row.Start, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid caption start %q: %w", row.Start, err)
		}
		dur, err := strconv.ParseFloat(row.Dur, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid caption duration %q: %w", row.Dur, err)
		}
		captions = append(captions, transcript.RawCaption{
			Text:     row.Body,
			Start:    start,
			Duration: dur,
		})
	}
	return captions, nil
}

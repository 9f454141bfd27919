package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/archivesearch/internal/domain"
)

const (
	headerTimestamp = "timestamp"
	headerOriginal  = "original"
)

// DecodeRows turns a CDX JSON payload into rows of string cells. The payload
// must be an array of arrays; anything else is a malformed payload.
func DecodeRows(payload []byte) ([][]string, error) {
	// The index answers an empty body when nothing was captured.
	if len(bytes.TrimSpace(payload)) == 0 {
		return [][]string{}, nil
	}

	var rawRows []json.RawMessage
	if err := json.Unmarshal(payload, &rawRows); err != nil {
		return nil, domain.NewMalformedPayloadError(err)
	}
	if rawRows == nil {
		return nil, domain.NewMalformedPayloadError(fmt.Errorf("payload is null"))
	}

	rows := make([][]string, 0, len(rawRows))
	for i, rawRow := range rawRows {
		var cells []json.RawMessage
		if err := json.Unmarshal(rawRow, &cells); err != nil || cells == nil {
			return nil, domain.NewMalformedPayloadError(fmt.Errorf("row %d is not an array", i))
		}

		row := make([]string, len(cells))
		for j, cell := range cells {
			row[j] = cellString(cell)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func cellString(cell json.RawMessage) string {
	var s string
	if err := json.Unmarshal(cell, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(cell)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	return string(trimmed)
}

// ParseRecords converts decoded rows into capture records in index order.
// Rows shorter than two columns are skipped, as is any row carrying the
// ("timestamp", "original") header pair, wherever it appears.
func ParseRecords(rows [][]string) []domain.CaptureRecord {
	records := make([]domain.CaptureRecord, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if row[0] == headerTimestamp && row[1] == headerOriginal {
			continue
		}
		records = append(records, domain.CaptureRecord{
			Timestamp:   row[0],
			OriginalURL: row[1],
		})
	}
	return records
}

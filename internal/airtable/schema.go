package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TableSchema describes one store table, used by the admin configuration
// surface to offer display-field choices.
type TableSchema struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Fields []FieldSchema `json:"fields"`
}

type FieldSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type metaTablesResponse struct {
	Tables []TableSchema `json:"tables"`
}

// FetchTableSchema reads a base's table list from the store's meta API and
// returns the schema of the named table.
func (c *Client) FetchTableSchema(ctx context.Context, baseID, tableName string) (TableSchema, error) {
	if baseID == "" || tableName == "" {
		return TableSchema{}, fmt.Errorf("airtable: base and table are required")
	}

	reqURL := fmt.Sprintf("%s/meta/bases/%s/tables", c.baseURL, baseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return TableSchema{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return TableSchema{}, fmt.Errorf("airtable: schema fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TableSchema{}, fmt.Errorf("airtable: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TableSchema{}, &StoreQueryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var meta metaTablesResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return TableSchema{}, fmt.Errorf("airtable: decode schema: %w", err)
	}
	for _, tbl := range meta.Tables {
		if tbl.Name == tableName {
			return tbl, nil
		}
	}
	return TableSchema{}, fmt.Errorf("airtable: table %q not found in base", tableName)
}

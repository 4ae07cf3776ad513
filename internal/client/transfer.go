package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/tedtam/fieldops/internal/exchange"
	"github.com/tedtam/fieldops/internal/report"
)

// Import uploads an .xlsx workbook and returns the server's row
// accounting.
func (c *Client) Import(ctx context.Context, name string, src io.Reader) (exchange.Summary, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return exchange.Summary{}, err
	}
	if _, err := io.Copy(part, src); err != nil {
		return exchange.Summary{}, fmt.Errorf("buffering workbook: %w", err)
	}
	if err := mw.Close(); err != nil {
		return exchange.Summary{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/customers/import", &buf)
	if err != nil {
		return exchange.Summary{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return exchange.Summary{}, err
	}
	var summary exchange.Summary
	if err := decodeJSON(resp, &summary); err != nil {
		return exchange.Summary{}, err
	}
	return summary, nil
}

// Export downloads the collection as an .xlsx workbook into dst and
// returns the server-suggested filename.
func (c *Client) Export(ctx context.Context, query string, dst io.Writer) (string, error) {
	path := "/api/customers/export"
	if query != "" {
		path += "?" + query
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		return "", fmt.Errorf("downloading workbook: %w", err)
	}
	return filenameFromDisposition(resp.Header.Get("Content-Disposition")), nil
}

func filenameFromDisposition(cd string) string {
	const marker = `filename="`
	i := strings.Index(cd, marker)
	if i < 0 {
		return ""
	}
	rest := cd[i+len(marker):]
	if j := strings.IndexByte(rest, '"'); j >= 0 {
		return rest[:j]
	}
	return ""
}

// CommissionSummaries fetches the per-team commission rollup.
func (c *Client) CommissionSummaries(ctx context.Context) ([]report.CommissionSummary, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/reports/commission", nil)
	if err != nil {
		return nil, err
	}
	var rows []report.CommissionSummary
	if err := decodeJSON(resp, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Package analytics provides a client for the Google Analytics Data API
// (GA4 runReport). See https://developers.google.com/analytics/devguides/reporting/data/v1
// for full documentation.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://analyticsdata.googleapis.com/v1beta"
	defaultTimeout = 30 * time.Second

	// dateFormat is the YYYY-MM-DD layout the Data API expects.
	dateFormat = "2006-01-02"
)

// Client provides methods to query a single GA4 property.
type Client struct {
	propertyID string
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given GA4 property ID. The supplied
// http.Client must attach OAuth2 bearer credentials (see the auth package);
// pass nil to use a plain client with a default timeout.
func New(propertyID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		propertyID: propertyID,
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
	}
}

// runReportRequest is the subset of the runReport body this client uses:
// one metric over one date range.
type runReportRequest struct {
	DateRanges []dateRange `json:"dateRanges"`
	Metrics    []metric    `json:"metrics"`
}

type dateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type metric struct {
	Name string `json:"name"`
}

type runReportResponse struct {
	Rows []struct {
		MetricValues []struct {
			Value string `json:"value"`
		} `json:"metricValues"`
	} `json:"rows"`
}

// SessionsForDate returns the session count for a single calendar day.
// A response with no rows means the property recorded no sessions and
// yields 0, not an error. Each call issues exactly one report request.
func (c *Client) SessionsForDate(ctx context.Context, day time.Time) (int64, error) {
	date := day.UTC().Format(dateFormat)

	body, err := json.Marshal(&runReportRequest{
		DateRanges: []dateRange{{StartDate: date, EndDate: date}},
		Metrics:    []metric{{Name: "sessions"}},
	})
	if err != nil {
		return 0, fmt.Errorf("analytics: failed to marshal report request: %w", err)
	}

	url := fmt.Sprintf("%s/properties/%s:runReport", c.baseURL, c.propertyID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("analytics: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("analytics: report request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, newAPIError(resp)
	}

	var report runReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return 0, fmt.Errorf("analytics: failed to decode report response: %w", err)
	}

	// No rows means no sessions recorded for the day
	if len(report.Rows) == 0 || len(report.Rows[0].MetricValues) == 0 {
		return 0, nil
	}

	sessions, err := strconv.ParseInt(report.Rows[0].MetricValues[0].Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("analytics: invalid session count %q: %w", report.Rows[0].MetricValues[0].Value, err)
	}

	return sessions, nil
}

// APIError represents an error response from the Data API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analytics: API error %d: %s", e.StatusCode, e.Message)
}

// newAPIError parses the structured Google error body when present.
func newAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &apiResp) == nil && apiResp.Error.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: apiResp.Error.Message}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}

package appd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	phttp "perfkit/internal/http"
)

const userAgent = "perfkit-appd/1.0"

// Application is one business application registered on the controller.
type Application struct {
	ID   int64
	Name string
}

// Client reads the controller REST API. The wrapped HTTP client is expected
// to carry authentication and retries.
type Client struct {
	http *phttp.Client
}

// NewClient wraps an authenticated HTTP client whose base URL is the controller.
func NewClient(hc *phttp.Client) *Client {
	return &Client{http: hc}
}

// Applications lists all applications.
func (c *Client) Applications(ctx context.Context) ([]Application, error) {
	body, err := c.get(ctx, "Applications", "/controller/rest/applications", url.Values{"output": {"json"}})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("applications: invalid JSON response")
	}

	var apps []Application
	gjson.ParseBytes(body).ForEach(func(_, app gjson.Result) bool {
		apps = append(apps, Application{
			ID:   app.Get("id").Int(),
			Name: app.Get("name").String(),
		})
		return true
	})
	return apps, nil
}

// MetricValue returns the latest rolled-up value of path for an application
// over w, rounded to 2 decimals. A response without data points yields 0.
func (c *Client) MetricValue(ctx context.Context, appID int64, path string, w Window) (float64, error) {
	q := url.Values{
		"metric-path":     {path},
		"time-range-type": {"BETWEEN_TIMES"},
		"start-time":      {strconv.FormatInt(w.StartMillis(), 10)},
		"end-time":        {strconv.FormatInt(w.EndMillis(), 10)},
		"rollup":          {"true"},
		"output":          {"json"},
	}
	body, err := c.get(ctx, path, "/controller/rest/applications/"+strconv.FormatInt(appID, 10)+"/metric-data", q)
	if err != nil {
		return 0, err
	}
	return parseMetricValue(body)
}

func (c *Client) get(ctx context.Context, name, path string, q url.Values) ([]byte, error) {
	resp, err := c.http.Do(ctx, phttp.Request{
		Name:    name,
		Path:    path,
		Query:   q,
		Headers: map[string]string{"Accept": "application/json", "User-Agent": userAgent},
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}
	return resp.Body, nil
}

// parseMetricValue walks every returned metric; the last data point of the
// last metric that has any wins.
func parseMetricValue(body []byte) (float64, error) {
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("metric-data: invalid JSON response")
	}
	var value float64
	for _, values := range gjson.GetBytes(body, "#.metricValues").Array() {
		points := values.Array()
		if len(points) == 0 {
			continue
		}
		value = points[len(points)-1].Get("value").Float()
	}
	return round2(value), nil
}

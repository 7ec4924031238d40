package wdl

import (
	"context"
	"fmt"
	"net/url"
)

// FetchPerSecData fetches the per-second time-series payload for jobID from
// GET /persecdata/<jobID>. The payload is CSV text: a header row, a units
// row, then one row per second.
func (c *Client) FetchPerSecData(ctx context.Context, jobID string) (string, error) {
	if jobID == "" {
		return "", fmt.Errorf("job id is required")
	}
	body, err := c.get(ctx, "/persecdata/"+url.PathEscape(jobID))
	if err != nil {
		return "", fmt.Errorf("fetch per-second data for job %s: %w", jobID, err)
	}
	return string(body), nil
}

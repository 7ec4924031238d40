package wdl

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ListJobHeaders fetches the job directory from GET /jobheaders.
//
// Legal descriptions come back with embedded quote characters; they are
// stripped here so downstream consumers see the plain text.
func (c *Client) ListJobHeaders(ctx context.Context) ([]JobHeader, error) {
	body, err := c.get(ctx, "/jobheaders")
	if err != nil {
		return nil, fmt.Errorf("list job headers: %w", err)
	}

	var headers []JobHeader
	if err := json.Unmarshal(body, &headers); err != nil {
		return nil, fmt.Errorf("parse job headers response: %w", err)
	}

	for i := range headers {
		headers[i].LegalDescription = strings.ReplaceAll(headers[i].LegalDescription, `"`, "")
	}
	return headers, nil
}

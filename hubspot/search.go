// ABOUTME: Windowed search with result-cap subdivision
// ABOUTME: BETWEEN time filters, cursor pagination, and binary window splitting
package hubspot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/harperreed/hublake/models"
)

const (
	// minSplitWindow stops subdivision: a window this small that still
	// exceeds the result cap is fetched truncated (logged).
	minSplitWindow = time.Minute

	maxSplitDepth = 24
)

// SearchSpec names the searchable object type, the properties to request,
// and the timestamp property the window filters on. FallbackProp is tried
// once when the API rejects SearchProp with a 400.
type SearchSpec struct {
	ObjectType   string
	Properties   []string
	SearchProp   string
	FallbackProp string
}

// SearchWindow fetches every record of spec whose SearchProp falls inside
// window. When the query's total result count exceeds the API cap, the
// window is halved recursively and the sub-windows fetched in order, so the
// returned slice covers the window with no gap or overlap.
//
// The fetch is not restartable mid-stream: any page failure aborts the whole
// window, which the caller retries from scratch (safe because the downstream
// merge is idempotent).
func (c *Client) SearchWindow(ctx context.Context, spec SearchSpec, window models.FetchWindow) ([]RawRecord, error) {
	return c.searchWindow(ctx, spec, spec.SearchProp, window, 0)
}

func (c *Client) searchWindow(ctx context.Context, spec SearchSpec, prop string, window models.FetchWindow, depth int) ([]RawRecord, error) {
	var out []RawRecord
	after := ""
	for {
		req := searchRequest{
			FilterGroups: []filterGroup{{Filters: []filter{{
				PropertyName: prop,
				Operator:     "BETWEEN",
				Value:        strconv.FormatInt(window.From.UnixMilli(), 10),
				HighValue:    strconv.FormatInt(window.To.UnixMilli(), 10),
			}}}},
			Sorts:      []sortSpec{{PropertyName: prop, Direction: "ASCENDING"}},
			Properties: spec.Properties,
			Limit:      c.pageSize,
			After:      after,
		}

		resp, err := c.searchPage(ctx, spec.ObjectType, req)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == 400 &&
				spec.FallbackProp != "" && prop != spec.FallbackProp {
				c.log.Warn("search property rejected, restarting window on fallback",
					"object", spec.ObjectType, "prop", prop, "fallback", spec.FallbackProp)
				return c.searchWindow(ctx, spec, spec.FallbackProp, window, depth)
			}
			return nil, fmt.Errorf("search %s %s: %w", spec.ObjectType, window, err)
		}

		// The first page reports the query's total; subdivide before
		// accumulating when it would blow the cap.
		if after == "" && resp.Total > c.resultCap {
			if window.Duration() <= minSplitWindow || depth >= maxSplitDepth {
				c.log.Warn("window exceeds result cap but cannot split further, results will be truncated",
					"object", spec.ObjectType, "window", window.String(), "total", resp.Total)
			} else {
				left, right := window.Split()
				c.log.Info("splitting window over result cap",
					"object", spec.ObjectType, "total", resp.Total,
					"left", left.String(), "right", right.String())
				lrecs, err := c.searchWindow(ctx, spec, prop, left, depth+1)
				if err != nil {
					return nil, err
				}
				rrecs, err := c.searchWindow(ctx, spec, prop, right, depth+1)
				if err != nil {
					return nil, err
				}
				return append(lrecs, rrecs...), nil
			}
		}

		out = append(out, resp.Results...)

		if resp.Paging == nil || resp.Paging.Next == nil || resp.Paging.Next.After == "" {
			return out, nil
		}
		if len(out) >= c.resultCap {
			c.log.Warn("reached result cap mid-pagination, truncating",
				"object", spec.ObjectType, "window", window.String(), "fetched", len(out))
			return out, nil
		}
		after = resp.Paging.Next.After
	}
}

// DualSearchWindow runs the window once by the created property and once by
// the modified property, merging by record ID. Catches old records touched
// recently without scanning full history.
func (c *Client) DualSearchWindow(ctx context.Context, spec SearchSpec, modifiedProp string, window models.FetchWindow) ([]RawRecord, error) {
	created, err := c.SearchWindow(ctx, spec, window)
	if err != nil {
		return nil, err
	}

	modSpec := spec
	modSpec.SearchProp = modifiedProp
	modified, err := c.SearchWindow(ctx, modSpec, window)
	if err != nil {
		return nil, err
	}

	return MergeByID(created, modified), nil
}

// MergeByID deduplicates record sets by ID; later sets win, preserving first-
// seen order for determinism.
func MergeByID(sets ...[]RawRecord) []RawRecord {
	index := make(map[string]int)
	var out []RawRecord
	for _, set := range sets {
		for _, rec := range set {
			if rec.ID == "" {
				continue
			}
			if at, seen := index[rec.ID]; seen {
				out[at] = rec
				continue
			}
			index[rec.ID] = len(out)
			out = append(out, rec)
		}
	}
	return out
}

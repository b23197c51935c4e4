// Copyright 2026 GoEnigma Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package enigma

import (
	"context"
	"strconv"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// Row is a single decoded row of a data response.
type Row map[string]any

// RowIterator iterates over the rows of a table, one data endpoint page at a
// time. Paging through the "page" parameter is handled transparently.
type RowIterator struct {
	context  context.Context
	client   *Client
	datapath string
	params   Params
	rows     []any // rows of the current page
	index    int   // the row for Next() to return
	page     int   // the page number most recently requested
	total    int   // total pages reported by the server; 0 = not reported
	started  bool  // if at least one page was ever requested
}

// Rows returns an iterator over the rows of the table identified by datapath.
// The params are the same as for GetData; a "page" parameter, when present,
// sets the page the iteration starts from.
func (c *Client) Rows(ctx context.Context, datapath string, params Params) *RowIterator {
	it := &RowIterator{
		context:  ctx,
		client:   c,
		datapath: datapath,
		params:   params,
		page:     1,
	}
	if p, err := strconv.Atoi(params["page"]); err == nil && p > 0 {
		it.page = p
	}
	return it
}

// nextPage requests and populates the iterator with the next page of rows.
// When there are no more pages, or requesting a page results in an error, the
// first return value becomes false.
func (it *RowIterator) nextPage() (bool, error) {
	if it.started {
		if it.total == 0 || it.page >= it.total {
			return false, nil
		}
		it.page++
	}
	it.started = true
	params := make(Params, len(it.params)+1)
	for k, v := range it.params {
		params[k] = v
	}
	params["page"] = strconv.Itoa(it.page)
	res, err := it.client.GetData(it.context, it.datapath, params)
	if err != nil {
		return false, errors.Annotate(err, "failed to fetch page %d", it.page)
	}
	it.rows, _ = res["result"].([]any)
	it.index = 0
	if total, ok := totalPages(res); ok {
		it.total = total
	}
	logging.Infof(it.context, "%s: fetched page %d with %d rows (%d pages total)",
		it.datapath, it.page, len(it.rows), it.total)
	return len(it.rows) > 0, nil
}

// Next returns the next row. The second value is false when the iterator is
// exhausted. Note, that the error may be non-nil regardless of the end of the
// iterator.
func (it *RowIterator) Next() (Row, bool, error) {
	if it.client == nil {
		return nil, false, nil
	}
	for it.index >= len(it.rows) {
		ok, err := it.nextPage()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
	}
	row, ok := it.rows[it.index].(map[string]any)
	it.index++
	if !ok {
		return nil, true, errors.Reason("row %d in page %d is not an object",
			it.index, it.page)
	}
	return Row(row), true, nil
}

// totalPages extracts info.total_pages from a data response.
func totalPages(res Response) (int, bool) {
	info, ok := res["info"].(map[string]any)
	if !ok {
		return 0, false
	}
	n, ok := info["total_pages"].(float64)
	if !ok {
		return 0, false
	}
	return int(n), true
}

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
	"compress/gzip"
	"context"
	"encoding/csv"
	"io"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
)

// ExportURL extracts the download link from an export endpoint response. The
// linked file is a gzipped CSV snapshot of the table.
func ExportURL(res Response) (string, error) {
	u, ok := res["export_url"].(string)
	if !ok || u == "" {
		return "", errors.Reason("export response contains no export_url")
	}
	return u, nil
}

// CSVReader streams the decompressed rows of a downloaded export file, one
// row at a time. Call Close() when done with the stream.
type CSVReader struct {
	reader  *csv.Reader
	closers []io.Closer // closed in LIFO order
}

// Read the next CSV row as a slice of strings. It returns the same errors as
// encoding/csv.Reader.Read() method. In particular, it returns nil, io.EOF
// when there are no more rows.
func (r *CSVReader) Read() ([]string, error) {
	return r.reader.Read()
}

// Close CSVReader and release all the resources. Closer errors are ignored.
func (r *CSVReader) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i].Close()
	}
	r.closers = nil
}

// DownloadCSV starts downloading the export file pointed to by link,
// typically obtained with ExportURL, and returns a CSVReader streaming its
// decompressed rows.
func DownloadCSV(ctx context.Context, link string) (*CSVReader, error) {
	resp, err := fetch.GetRetry(ctx, link, nil, nil)
	if err != nil {
		return nil, errors.Annotate(err, "failed to download the export file")
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, errors.Annotate(err, "failed to read gzip stream")
	}
	return &CSVReader{
		reader:  csv.NewReader(gz),
		closers: []io.Closer{resp.Body, gz},
	}, nil
}

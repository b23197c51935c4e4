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
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"testing"

	"github.com/stockparfait/fetch"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

// gzipString compresses s, for use as a test server response body.
func gzipString(s string) (string, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := io.WriteString(gz, s); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func TestExport(t *testing.T) {
	t.Parallel()

	Convey("ExportURL extracts the download link", t, func() {
		link, err := ExportURL(Response{"export_url": "https://test.url/file.csv.gz"})
		So(err, ShouldBeNil)
		So(link, ShouldEqual, "https://test.url/file.csv.gz")

		_, err = ExportURL(Response{"success": true})
		So(err, ShouldNotBeNil)
		_, err = ExportURL(Response{"export_url": ""})
		So(err, ShouldNotBeNil)
	})

	Convey("DownloadCSV streams the gzipped export file", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		ctx := fetch.UseClient(context.Background(), server.Client())

		body, err := gzipString("serialid,name,salary\n1,Abrams,70000.00\n2,Baker,52000.00\n")
		So(err, ShouldBeNil)
		server.ResponseBody = []string{body}

		r, err := DownloadCSV(ctx, server.URL()+"/exports/file.csv.gz")
		So(err, ShouldBeNil)
		defer r.Close()

		var rows [][]string
		for {
			row, err := r.Read()
			if err == io.EOF {
				break
			}
			So(err, ShouldBeNil)
			rows = append(rows, row)
		}
		So(rows, ShouldResemble, [][]string{
			{"serialid", "name", "salary"},
			{"1", "Abrams", "70000.00"},
			{"2", "Baker", "52000.00"},
		})
	})

	Convey("DownloadCSV rejects a non-gzip body", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		ctx := fetch.UseClient(context.Background(), server.Client())
		server.ResponseBody = []string{"plain text, not gzip"}

		_, err := DownloadCSV(ctx, server.URL()+"/exports/file.csv.gz")
		So(err, ShouldNotBeNil)
	})
}

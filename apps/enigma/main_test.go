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

package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/testutil"
	"github.com/thejunglejane/goenigma/enigma"

	. "github.com/smartystreets/goconvey/convey"
)

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

func TestApp(t *testing.T) {
	tmpdir, tmpdirErr := os.MkdirTemp("", "test_enigma")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		Convey("all flags", func() {
			flags, err := parseFlags([]string{
				"-conf", "path/to/config", "-log-level", "warning",
				"-data", "us.gov.data", "-q", "select=name", "-q", "limit=5",
				"-csv", "-rows", "10", "-lenient"})
			So(err, ShouldBeNil)
			So(flags.Conf, ShouldEqual, "path/to/config")
			So(flags.LogLevel, ShouldEqual, logging.Warning)
			So(flags.Data, ShouldEqual, "us.gov.data")
			So(flags.Query, ShouldResemble,
				enigma.Params{"select": "name", "limit": "5"})
			So(flags.CSV, ShouldBeTrue)
			So(flags.Rows, ShouldEqual, 10)
			So(flags.Lenient, ShouldBeTrue)
		})

		Convey("exactly one resource is required", func() {
			_, err := parseFlags([]string{"-conf", "c"})
			So(err, ShouldNotBeNil)
			_, err = parseFlags([]string{"-conf", "c", "-limits", "-data", "dp"})
			So(err, ShouldNotBeNil)
		})

		Convey("-o requires -export", func() {
			_, err := parseFlags([]string{"-conf", "c", "-limits", "-o", "out.csv"})
			So(err, ShouldNotBeNil)
			flags, err := parseFlags([]string{
				"-conf", "c", "-export", "dp", "-o", "out.csv"})
			So(err, ShouldBeNil)
			So(flags.Out, ShouldEqual, "out.csv")
		})
	})

	Convey("printData works", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		ctx := fetch.UseClient(context.Background(), server.Client())

		configFile := filepath.Join(tmpdir, "config.toml")
		So(testutil.WriteFile(configFile, fmt.Sprintf(`key = "testkey"
endpoint = "%s"
`, server.URL())), ShouldBeNil)

		Convey("missing config", func() {
			flags, err := parseFlags([]string{
				"-conf", filepath.Join(tmpdir, "no-such-config.toml"), "-limits"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldNotBeNil)
		})

		Convey("limits as text", func() {
			server.ResponseBody = []string{
				`{"data": 9891, "meta": 9996, "period": "monthly"}`}
			flags, err := parseFlags([]string{"-conf", configFile, "-limits"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/v2/limits/testkey")
			So("\n"+buf.String(), ShouldEqual, `
 Limit |   Value
------ | -------
  data |    9891
  meta |    9996
period | monthly
`)
		})

		Convey("metadata as CSV", func() {
			server.ResponseBody = []string{`
				{"result": {"columns": [
				  {"id": "salary", "label": "Salary", "type": "type_numeric"},
				  {"id": "name", "label": "Name", "type": "type_varchar"}]}}`}
			flags, err := parseFlags([]string{
				"-conf", configFile, "-meta", "us.gov.whitehouse.salaries.2011", "-csv"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So(server.RequestPath, ShouldEqual,
				"/v2/meta/testkey/us.gov.whitehouse.salaries.2011/")
			So("\n"+buf.String(), ShouldEqual, `
ID,Label,Type,Go Type
salary,Salary,type_numeric,decimal
name,Name,type_varchar,string
`)
		})

		Convey("data rows as text", func() {
			server.ResponseBody = []string{`
				{"info": {"total_pages": 1},
				 "result": [{"name": "Abrams", "salary": "70000.00"}]}`}
			flags, err := parseFlags([]string{
				"-conf", configFile, "-data", "us.gov.whitehouse.salaries.2011"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
  name |   salary
------ | --------
Abrams | 70000.00
`)
		})

		Convey("stats as JSON", func() {
			server.ResponseBody = []string{`{"result": {"sum": 140000}}`}
			flags, err := parseFlags([]string{
				"-conf", configFile, "-stats", "us.gov.data", "-q", "select=salary",
				"-q", "operation=sum"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, `"sum": 140000`)
		})

		Convey("export download", func() {
			body, err := gzipString("serialid,name\n1,Abrams\n2,Baker\n")
			So(err, ShouldBeNil)
			server.ResponseBody = []string{
				fmt.Sprintf(`{"export_url": "%s/exports/file.csv.gz"}`, server.URL()),
				body,
			}
			outFile := filepath.Join(tmpdir, "out.csv")
			flags, err := parseFlags([]string{
				"-conf", configFile, "-export", "us.gov.data", "-o", outFile})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(printData(ctx, flags, &buf), ShouldBeNil)
			So(buf.String(), ShouldEqual,
				fmt.Sprintf("wrote 3 rows to %s\n", outFile))
			written, err := os.ReadFile(outFile)
			So(err, ShouldBeNil)
			So(string(written), ShouldEqual, "serialid,name\n1,Abrams\n2,Baker\n")
		})
	})
}

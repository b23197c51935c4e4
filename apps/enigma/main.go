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
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/thejunglejane/goenigma/enigma"
	"github.com/thejunglejane/goenigma/table"

	toml "github.com/pelletier/go-toml/v2"
)

// queryFlag accumulates repeated -q key=value arguments.
type queryFlag struct {
	params enigma.Params
}

var _ flag.Value = &queryFlag{}

func (q *queryFlag) String() string {
	pairs := make([]string, 0, len(q.params))
	for k, v := range q.params {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (q *queryFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return errors.Reason("expected key=value, got '%s'", s)
	}
	if q.params == nil {
		q.params = make(enigma.Params)
	}
	q.params[k] = v
	return nil
}

type Flags struct {
	Conf     string // default: ~/.goenigma/config.toml
	LogLevel logging.Level
	// Exactly one of data, meta, stats, export or limits must be present.
	Data    string // datapath to print rows for
	Meta    string // datapath to print column metadata for
	Stats   string // datapath to print statistics for
	Export  string // datapath to request an export for
	Limits  bool   // print the current API usage limits
	Query   enigma.Params
	CSV     bool   // dump CSV format; default: text
	Rows    int    // max. rows to print; 0 = unlimited
	Out     string // with -export: download the CSV to this file
	Lenient bool   // return response bodies even on unexpected HTTP statuses
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	var query queryFlag
	fs := flag.NewFlagSet("enigma", flag.ExitOnError)
	fs.StringVar(&flags.Conf, "conf",
		filepath.Join(os.Getenv("HOME"), ".goenigma", "config.toml"),
		"path to the config file")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Data, "data", "", "datapath to print rows for")
	fs.StringVar(&flags.Meta, "meta", "", "datapath to print column metadata for")
	fs.StringVar(&flags.Stats, "stats", "", "datapath to print statistics for")
	fs.StringVar(&flags.Export, "export", "", "datapath to request an export for")
	fs.BoolVar(&flags.Limits, "limits", false, "print the current API usage limits")
	fs.Var(&query, "q", "query parameter as key=value; may be repeated")
	fs.BoolVar(&flags.CSV, "csv", false, "print tables in CSV format; default: text")
	fs.IntVar(&flags.Rows, "rows", 0, "max. number of rows to print; 0 = unlimited")
	fs.StringVar(&flags.Out, "o", "", "with -export: download the CSV to this file")
	fs.BoolVar(&flags.Lenient, "lenient", false,
		"return response bodies even on unexpected HTTP statuses")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	flags.Query = query.params
	kinds := 0
	for _, dp := range []string{flags.Data, flags.Meta, flags.Stats, flags.Export} {
		if dp != "" {
			kinds++
		}
	}
	if flags.Limits {
		kinds++
	}
	if kinds != 1 {
		return nil, errors.Reason(
			"expected exactly one of -data, -meta, -stats, -export or -limits")
	}
	if flags.Out != "" && flags.Export == "" {
		return nil, errors.Reason("-o requires -export")
	}
	return &flags, nil
}

type Config struct {
	Key      string `toml:"key"`      // the Enigma API key
	Endpoint string `toml:"endpoint"` // optional API endpoint override
}

func parseConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `key = "YourSecretEnigmaKey"
`
			return nil, errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, sample)
		}
		return nil, errors.Annotate(err,
			"cannot check config file for existence: '%s'", filePath)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	if c.Key == "" {
		return nil, errors.Reason("config file %s contains no key", filePath)
	}
	return &c, nil
}

// formatValue renders a decoded JSON value as a table cell.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func writeTable(tbl *table.Table, flags *Flags, w io.Writer) error {
	p := table.Params{Rows: flags.Rows}
	if flags.CSV {
		return errors.Annotate(tbl.WriteCSV(w, p), "failed to print CSV")
	}
	return errors.Annotate(tbl.WriteText(w, p), "failed to print text")
}

func printJSON(res enigma.Response, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Annotate(enc.Encode(res), "failed to print JSON")
}

func limitsTable(res enigma.Response) *table.Table {
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tbl := table.New("Limit", "Value")
	for _, k := range keys {
		tbl.Add(k, formatValue(res[k]))
	}
	return tbl
}

func metaTable(res enigma.Response) (*table.Table, error) {
	result, ok := res["result"].(map[string]any)
	if !ok {
		return nil, errors.Reason("metadata response contains no result")
	}
	columns, ok := result["columns"].([]any)
	if !ok {
		return nil, errors.Reason("metadata response contains no columns")
	}
	tbl := table.New("ID", "Label", "Type", "Go Type")
	for _, c := range columns {
		column, ok := c.(map[string]any)
		if !ok {
			continue
		}
		tbl.Add(
			formatValue(column["id"]),
			formatValue(column["label"]),
			formatValue(column["type"]),
			formatValue(column[enigma.GoTypeKey]))
	}
	return tbl, nil
}

// rowsTable reads up to flags.Rows rows from the iterator; the header is the
// sorted set of keys of the first row.
func rowsTable(it *enigma.RowIterator, flags *Flags) (*table.Table, error) {
	var header []string
	var tbl *table.Table
	for {
		row, ok, err := it.Next()
		if err != nil {
			return nil, errors.Annotate(err, "failed to read rows")
		}
		if !ok {
			break
		}
		if tbl == nil {
			for k := range row {
				header = append(header, k)
			}
			sort.Strings(header)
			tbl = table.New(header...)
		}
		cells := make([]string, len(header))
		for i, k := range header {
			cells[i] = formatValue(row[k])
		}
		tbl.Add(cells...)
		if flags.Rows > 0 && len(tbl.Rows) >= flags.Rows {
			break
		}
	}
	if tbl == nil {
		return nil, errors.Reason("the table has no rows")
	}
	return tbl, nil
}

func downloadExport(ctx context.Context, res enigma.Response, flags *Flags, w io.Writer) error {
	link, err := enigma.ExportURL(res)
	if err != nil {
		return errors.Annotate(err, "failed to locate the export file")
	}
	r, err := enigma.DownloadCSV(ctx, link)
	if err != nil {
		return errors.Annotate(err, "failed to download the export file")
	}
	defer r.Close()

	f, err := os.Create(flags.Out)
	if err != nil {
		return errors.Annotate(err, "failed to create %s", flags.Out)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	rows := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Annotate(err, "failed to read the export stream")
		}
		if err := cw.Write(row); err != nil {
			return errors.Annotate(err, "failed to write %s", flags.Out)
		}
		rows++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush %s", flags.Out)
	}
	fmt.Fprintf(w, "wrote %d rows to %s\n", rows, flags.Out)
	return nil
}

func printData(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := parseConfig(flags.Conf)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	if config.Endpoint != "" {
		enigma.URL = config.Endpoint
	}
	if flags.Lenient {
		ctx = enigma.UseLenientClient(ctx, config.Key)
	} else {
		ctx = enigma.UseClient(ctx, config.Key)
	}
	c := enigma.GetClient(ctx)

	switch {
	case flags.Limits:
		res, err := c.GetLimits(ctx)
		if err != nil {
			return errors.Annotate(err, "failed to fetch limits")
		}
		return writeTable(limitsTable(res), flags, w)
	case flags.Meta != "":
		res, err := c.GetMetadata(ctx, flags.Meta, flags.Query)
		if err != nil {
			return errors.Annotate(err, "failed to fetch metadata for %s", flags.Meta)
		}
		tbl, err := metaTable(res)
		if err != nil {
			return err
		}
		return writeTable(tbl, flags, w)
	case flags.Data != "":
		tbl, err := rowsTable(c.Rows(ctx, flags.Data, flags.Query), flags)
		if err != nil {
			return errors.Annotate(err, "failed to fetch rows for %s", flags.Data)
		}
		return writeTable(tbl, flags, w)
	case flags.Stats != "":
		res, err := c.GetStats(ctx, flags.Stats, flags.Query)
		if err != nil {
			return errors.Annotate(err, "failed to fetch stats for %s", flags.Stats)
		}
		return printJSON(res, w)
	case flags.Export != "":
		res, err := c.GetExport(ctx, flags.Export, flags.Query)
		if err != nil {
			return errors.Annotate(err, "failed to fetch the export for %s", flags.Export)
		}
		if flags.Out == "" {
			return printJSON(res, w)
		}
		return downloadExport(ctx, res, flags, w)
	}
	return errors.Reason("no resource requested")
}

// main is not tested, keep it short.
func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := printData(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}

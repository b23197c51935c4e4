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
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/stockparfait/errors"
)

// Type is the inferred semantic type of a table column.
type Type uint8

const (
	TypeString Type = iota
	TypeBool
	TypeInt
	TypeInt64
	TypeFloat
	TypeDecimal
	TypeDate
	TypeDateTime
)

var typeNames = map[Type]string{
	TypeString:   "string",
	TypeBool:     "bool",
	TypeInt:      "int",
	TypeInt64:    "int64",
	TypeFloat:    "float64",
	TypeDecimal:  "decimal",
	TypeDate:     "date",
	TypeDateTime: "datetime",
}

func (t Type) String() string { return typeNames[t] }

// tagTypes maps a metadata type tag, with its "type_" prefix stripped and the
// remaining underscores replaced by spaces, to the semantic type. The
// mappings follow the PL/Python PostgreSQL to Python table:
// http://www.postgresql.org/docs/9.4/static/plpython-data.html
var tagTypes = map[string]Type{
	"bigint":                      TypeInt64,
	"boolean":                     TypeBool,
	"bytea":                       TypeString,
	"character varying":           TypeString,
	"date":                        TypeDate,
	"double":                      TypeFloat,
	"double precision":            TypeFloat,
	"int":                         TypeInt,
	"integer":                     TypeInt,
	"numeric":                     TypeDecimal,
	"oid":                         TypeInt64,
	"real":                        TypeFloat,
	"smallint":                    TypeInt,
	"text":                        TypeString,
	"timestamp":                   TypeDateTime,
	"timestamp without time zone": TypeDateTime,
	"varchar":                     TypeString,
}

// TypeOf infers the semantic type from a metadata type tag such as
// "type_numeric" or "type_timestamp_without_time_zone". It is total:
// unrecognized tags map to TypeString.
func TypeOf(tag string) Type {
	parts := strings.Split(tag, "_")
	if t, ok := tagTypes[strings.Join(parts[1:], " ")]; ok {
		return t
	}
	return TypeString
}

// GoTypeKey is the key added to each metadata column with the name of its
// inferred semantic type.
const GoTypeKey = "go_type"

// annotateColumns adds the inferred semantic type to every column of a
// metadata response. A response whose envelope doesn't contain a recognizable
// result.columns list is left unchanged; the client does not enforce the
// envelope shape.
func annotateColumns(res Response) {
	result, ok := res["result"].(map[string]any)
	if !ok {
		return
	}
	columns, ok := result["columns"].([]any)
	if !ok {
		return
	}
	for _, c := range columns {
		column, ok := c.(map[string]any)
		if !ok {
			continue
		}
		tag, _ := column["type"].(string)
		column[GoTypeKey] = TypeOf(tag).String()
	}
}

// timeFormats are the timestamp layouts observed in API responses and export
// files, tried in order.
var timeFormats = []string{
	"2006-01-02 15:04:05.999",
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05.999Z",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	if s == "0000-00-00" || s == "0000-00-00T00:00:00.000" {
		return time.Time{}, nil
	}
	var err error
	for _, f := range timeFormats {
		var tm time.Time
		if tm, err = time.Parse(f, s); err == nil {
			return tm, nil
		}
	}
	return time.Time{}, err
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "t", "true", "y", "yes":
		return true, nil
	case "f", "false", "n", "no", "":
		return false, nil
	}
	return false, errors.Reason("unrecognized bool value '%s'", s)
}

// Parse converts a raw cell value, as it appears in an export file, to the Go
// value of the semantic type: int for TypeInt, int64 for TypeInt64, float64
// for TypeFloat, *big.Rat for TypeDecimal (preserving precision), time.Time
// for TypeDate and TypeDateTime, and the string itself for TypeString.
func (t Type) Parse(s string) (any, error) {
	switch t {
	case TypeBool:
		v, err := parseBool(s)
		return v, errors.Annotate(err, "failed to parse '%s' as %s", s, t)
	case TypeInt:
		v, err := strconv.Atoi(s)
		return v, errors.Annotate(err, "failed to parse '%s' as %s", s, t)
	case TypeInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		return v, errors.Annotate(err, "failed to parse '%s' as %s", s, t)
	case TypeFloat:
		v, err := strconv.ParseFloat(s, 64)
		return v, errors.Annotate(err, "failed to parse '%s' as %s", s, t)
	case TypeDecimal:
		v, ok := new(big.Rat).SetString(s)
		if !ok {
			return nil, errors.Reason("failed to parse '%s' as %s", s, t)
		}
		return v, nil
	case TypeDate, TypeDateTime:
		v, err := parseTime(s)
		return v, errors.Annotate(err, "failed to parse '%s' as %s", s, t)
	}
	return s, nil
}

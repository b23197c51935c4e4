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

// Package enigma implements a client for the Enigma v2 tabular-data API.
//
// The API exposes five read-only resources: data, metadata (wire name
// "meta"), stats, export and limits. Each resource has a dedicated client
// method, and all of them share the same request protocol: the supplied query
// parameters are checked against the resource's recognized set, the request
// URL is built deterministically from the endpoint, version, resource, API
// key, datapath and parameters, and the decoded JSON body is returned as-is.
// The one exception is metadata, whose result.columns entries are annotated
// with an inferred semantic type; see Type.
//
// A datapath is a dot-delimited identifier of a remote table, e.g.
// "us.gov.whitehouse.salaries.2011". All resources except limits require
// one.
//
// The client is injected into a context:
//
//	ctx := enigma.UseClient(context.Background(), apiKey)
//	res, err := enigma.GetClient(ctx).GetData(ctx, datapath, nil)
//
// Large tables can be read row by row with transparent paging through
// RowIterator, and export files can be streamed with DownloadCSV.
//
// Note, that the API key travels as a URL path segment, which is the wire
// format of the remote service. Anything that logs request URLs, including
// RequestURL(), sees the key.
package enigma

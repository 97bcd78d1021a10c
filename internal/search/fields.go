package search

import (
	"maps"
	"slices"
)

// Physical field names of the method audit index.
const (
	fieldTimestamp     = "timestamp"
	fieldMethodName    = "methodName"
	fieldMethodArgs    = "args"
	fieldMethodResult  = "result"
	fieldLogLevel      = "logLevel"
	fieldEventType     = "logType"
	fieldMethodNameRaw = "methodName.keyword"
)

// Physical field names of the request audit index.
const (
	fieldPath        = "path"
	fieldPathRaw     = "path.keyword"
	fieldRequestBody = "requestBody"
	fieldHTTPMethod  = "method"
	fieldStatusCode  = "statusCode"
	fieldDirection   = "requestType"
)

// GroupFields maps a semantic group-by key to the field a terms
// aggregation runs on. Text fields are grouped by their keyword sibling.
type GroupFields map[string]string

// Resolve returns the physical field for key; ok is false for any key not in
// the table, including the empty string.
func (g GroupFields) Resolve(key string) (field string, ok bool) {
	field, ok = g[key]
	return field, ok
}

var methodGroupFields = GroupFields{
	"method": fieldMethodNameRaw,
	"level":  fieldLogLevel,
}

var requestGroupFields = GroupFields{
	"statusCode": fieldStatusCode,
	"method":     fieldHTTPMethod,
	"url":        fieldPathRaw,
}

// Keys lists the accepted group-by keys, sorted.
func (g GroupFields) Keys() []string {
	return slices.Sorted(maps.Keys(g))
}

// MethodGroupKeys and RequestGroupKeys list the accepted group-by keys.
func MethodGroupKeys() []string  { return methodGroupFields.Keys() }
func RequestGroupKeys() []string { return requestGroupFields.Keys() }

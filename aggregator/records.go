package aggregator

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// RecordKind identifies which container shape a response body had.
type RecordKind int

const (
	// KindNone - body is not a record collection and contributes nothing
	KindNone RecordKind = iota
	// KindArray - body is a JSON array
	KindArray
	// KindResults - body is a JSON object with a "results" array
	KindResults
)

func (k RecordKind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindResults:
		return "results"
	default:
		return "none"
	}
}

// RecordSet is the decoded record collection of one response body.
type RecordSet struct {
	Kind    RecordKind
	Records []json.RawMessage // Raw JSON of each element, in body order
}

var utf8BOM = []byte("\xef\xbb\xbf")

// DecodeRecords classifies body. An object whose "results" field is an array
// wins over every other shape; a bare array is next; anything else, including
// invalid JSON, yields KindNone with no records. A leading UTF-8 BOM is ignored.
func DecodeRecords(body []byte) RecordSet {
	body = bytes.TrimPrefix(body, utf8BOM)
	if !gjson.ValidBytes(body) {
		return RecordSet{Kind: KindNone}
	}

	root := gjson.ParseBytes(body)
	switch {
	case root.IsObject():
		results := lastField(root, "results")
		if !results.IsArray() {
			return RecordSet{Kind: KindNone}
		}
		return RecordSet{Kind: KindResults, Records: elements(results)}
	case root.IsArray():
		return RecordSet{Kind: KindArray, Records: elements(root)}
	default:
		return RecordSet{Kind: KindNone}
	}
}

// lastField returns the last member named key; duplicate keys resolve the
// same way JSON.parse does.
func lastField(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result
	obj.ForEach(func(k, value gjson.Result) bool {
		if k.String() == key {
			found = value
		}
		return true
	})
	return found
}

func elements(arr gjson.Result) []json.RawMessage {
	records := []json.RawMessage{}
	arr.ForEach(func(_, value gjson.Result) bool {
		records = append(records, json.RawMessage(value.Raw))
		return true
	})
	return records
}

package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSONBlock finds the JSON object in a model reply: the first fenced
// code block holding braces, else the first '{' to the last '}' of the text.
func ExtractJSONBlock(raw string) (string, bool) {
	rest := raw
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			break
		}
		body := rest[open+3:]
		end := strings.Index(body, "```")
		if end < 0 {
			break
		}
		if block, ok := braceSpan(body[:end]); ok {
			return block, true
		}
		rest = body[end+3:]
	}
	return braceSpan(raw)
}

func braceSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// ParseObject extracts and validates the JSON object of a model reply.
func ParseObject(raw string) (gjson.Result, bool) {
	block, ok := ExtractJSONBlock(raw)
	if !ok || !gjson.Valid(block) {
		return gjson.Result{}, false
	}
	obj := gjson.Parse(block)
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	return obj, true
}

// LooseString reads any scalar as trimmed text.
func LooseString(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number, gjson.True, gjson.False:
		return strings.TrimSpace(r.Raw)
	default:
		return ""
	}
}

// LooseNumber reads numbers and numeric strings.
func LooseNumber(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, !math.IsNaN(r.Num) && !math.IsInf(r.Num, 0)
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// LooseInt is LooseNumber rounded to the nearest integer.
func LooseInt(r gjson.Result) (int, bool) {
	f, ok := LooseNumber(r)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// LooseBool reads booleans, "true"/"false" style strings and numbers.
func LooseBool(r gjson.Result) (bool, bool) {
	switch r.Type {
	case gjson.True:
		return true, true
	case gjson.False:
		return false, true
	case gjson.Number:
		return r.Num != 0, true
	case gjson.String:
		switch strings.ToLower(strings.TrimSpace(r.Str)) {
		case "true", "yes", "y", "1", "是":
			return true, true
		case "false", "no", "n", "0", "否":
			return false, true
		}
	}
	return false, false
}

// LooseStrings reads an array of scalars, or a single string, as a list.
func LooseStrings(r gjson.Result) []string {
	if r.IsArray() {
		var out []string
		for _, item := range r.Array() {
			if s := LooseString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := LooseString(r); s != "" {
		return []string{s}
	}
	return nil
}

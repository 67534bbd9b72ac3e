package utils

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestExtractJSONBlockPrefersFence(t *testing.T) {
	raw := "思考 {not json}\n```json\n{\"a\":1}\n```\n尾巴 }"
	got, ok := ExtractJSONBlock(raw)
	if !ok {
		t.Fatalf("expected block")
	}
	if got != `{"a":1}` {
		t.Fatalf("unexpected block %q", got)
	}
}

func TestExtractJSONBlockWithWrapper(t *testing.T) {
	got, ok := ExtractJSONBlock("prefix {\"reply\":\"嗨\"} suffix")
	if !ok || got != `{"reply":"嗨"}` {
		t.Fatalf("unexpected block %q (ok=%v)", got, ok)
	}
}

func TestExtractJSONBlockSkipsFenceWithoutBraces(t *testing.T) {
	raw := "```map\n[门]--[走廊]\n```\n{\"b\":2}"
	got, ok := ExtractJSONBlock(raw)
	if !ok || got != `{"b":2}` {
		t.Fatalf("unexpected block %q", got)
	}
}

func TestParseObjectRejectsPlainText(t *testing.T) {
	if _, ok := ParseObject("回复内容"); ok {
		t.Fatalf("expected failure for text without json")
	}
	if _, ok := ParseObject("{broken"); ok {
		t.Fatalf("expected failure for broken json")
	}
}

func TestLooseReaders(t *testing.T) {
	obj := gjson.Parse(`{"n":"42.6","b":"是","s":7,"list":["a",1,"",null],"one":"x"}`)
	if v, ok := LooseInt(obj.Get("n")); !ok || v != 43 {
		t.Fatalf("LooseInt = %d,%v", v, ok)
	}
	if v, ok := LooseBool(obj.Get("b")); !ok || !v {
		t.Fatalf("LooseBool = %v,%v", v, ok)
	}
	if got := LooseString(obj.Get("s")); got != "7" {
		t.Fatalf("LooseString = %q", got)
	}
	if got := LooseStrings(obj.Get("list")); len(got) != 2 || got[0] != "a" || got[1] != "1" {
		t.Fatalf("LooseStrings = %v", got)
	}
	if got := LooseStrings(obj.Get("one")); len(got) != 1 {
		t.Fatalf("LooseStrings single = %v", got)
	}
	if _, ok := LooseInt(obj.Get("missing")); ok {
		t.Fatalf("expected missing field to fail")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("你好  世界", 3); got != "你好 " {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := AppendUnique([]string{"a"}, "a", " b ", ""); len(got) != 2 || got[1] != "b" {
		t.Fatalf("unexpected AppendUnique %v", got)
	}
}

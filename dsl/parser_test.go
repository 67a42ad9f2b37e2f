package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/furigana/dsl"
)

const sampleDSL = `
doc Lesson v1 {
  meta {
    title: "日本語の練習"
    keywords: [
      "furigana"
      "ruby"
    ]
  }

  resources {
    font Body {
      src: "builtin:go"
    }

    color Ink = #222222

    style Reading extends Base { font: Body size: 14pt gloss-size: 7pt line-spacing: 0.5x align: center }
  }

  page A5 portrait margin 12mm {
    text Reading width 60% { "{日本;にほん}語を<b>勉強</b>します。" }

    rule color Ink
    text Reading {
      "一行目<br>"
      "二行目"
    }
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Name != "Lesson" || doc.Version != "v1" {
		t.Fatalf("unexpected header: %s %s", doc.Name, doc.Version)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(doc.Sections))
	}
	kinds := []string{doc.Sections[0].Kind(), doc.Sections[1].Kind(), doc.Sections[2].Kind()}
	if strings.Join(kinds, ",") != "meta,resources,page" {
		t.Fatalf("unexpected section kinds: %v", kinds)
	}

	meta := doc.Sections[0].Meta
	title := meta.Block.Statements[0].Assignment
	if title == nil || title.Key != "title" || string(*title.Value.String) != "日本語の練習" {
		t.Fatalf("unexpected title statement: %+v", meta.Block.Statements[0])
	}
	keywords := meta.Block.Statements[1].Assignment
	if keywords == nil || keywords.Value.Array == nil || len(keywords.Value.Array.Values) != 2 {
		t.Fatalf("expected 2 keywords, got %+v", keywords)
	}

	res := doc.Sections[1].Resources
	if len(res.Block.Statements) != 3 {
		t.Fatalf("expected 3 resource statements, got %d", len(res.Block.Statements))
	}
	color := res.Block.Statements[1].Command
	if color == nil || color.Name != "color" || len(color.Args) != 3 || color.Args[2].Type != "Color" {
		t.Fatalf("unexpected color resource: %+v", color)
	}
	style := res.Block.Statements[2].Command
	if style == nil || style.Name != "style" || style.Args[0].Value != "Reading" || style.Args[2].Value != "Base" {
		t.Fatalf("unexpected style resource: %+v", style)
	}
	if len(style.Block.Statements) != 5 {
		t.Fatalf("expected 5 style properties, got %d", len(style.Block.Statements))
	}
	spacing := style.Block.Statements[3].Assignment
	if spacing == nil || spacing.Key != "line-spacing" || *spacing.Value.Number != "0.5x" {
		t.Fatalf("unexpected line-spacing: %+v", spacing)
	}

	page := doc.Sections[2].Page
	if page.Size != "A5" || len(page.Params) != 3 || page.Params[2].Value != "12mm" {
		t.Fatalf("unexpected page settings: %s %+v", page.Size, page.Params)
	}
	if len(page.Block.Statements) != 3 {
		t.Fatalf("expected 3 page statements, got %d", len(page.Block.Statements))
	}
	text := page.Block.Statements[0].Command
	if text == nil || text.Name != "text" || text.Args[2].Value != "60%" {
		t.Fatalf("unexpected text command: %+v", text)
	}
	if got := string(*text.Block.Statements[0].Text); !strings.HasPrefix(got, "{日本;にほん}") {
		t.Fatalf("text literal lost markup: %q", got)
	}
	rule := page.Block.Statements[1].Command
	if rule == nil || rule.Name != "rule" || rule.Block != nil {
		t.Fatalf("unexpected rule command: %+v", rule)
	}
	multi := page.Block.Statements[2].Command
	if multi == nil || len(multi.Block.Statements) != 2 {
		t.Fatalf("expected two literals in second text block, got %+v", multi)
	}
}

func TestParseRejectsMissingPageBlock(t *testing.T) {
	if _, err := dsl.ParseString(`doc X v1 { page A4 }`); err == nil {
		t.Fatalf("expected parse error for page without block")
	}
}

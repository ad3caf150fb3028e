package sanitize

import (
	"strings"
	"testing"
)

func TestHTMLRemovesScripts(t *testing.T) {
	got := HTML(`  <p class="lead">Hello <script>alert('x')</script><strong>world</strong></p>`)
	if strings.Contains(got, "script") {
		t.Fatalf("expected script to be removed, got %q", got)
	}
	if !strings.Contains(got, `<p class="lead">`) || !strings.Contains(got, "<strong>world</strong>") {
		t.Fatalf("expected paragraph markup to remain, got %q", got)
	}
}

func TestHTMLKeepsIcons(t *testing.T) {
	got := HTML(`<svg viewBox="0 0 24 24" onload="x()"><path d="M0 0h24v24H0z"/></svg>`)
	if strings.Contains(got, "onload") {
		t.Fatalf("expected event handler to be removed, got %q", got)
	}
	if !strings.Contains(got, "<svg") || !strings.Contains(got, "<path") {
		t.Fatalf("expected svg to remain, got %q", got)
	}
}

func TestInlineDropsBlocks(t *testing.T) {
	got := Inline(`<div><em>Email</em> <img src="x.png"></div>`)
	if got != "<em>Email</em>" {
		t.Fatalf("Inline = %q", got)
	}
	if Inline("   ") != "" {
		t.Fatalf("blank input should stay blank")
	}
}

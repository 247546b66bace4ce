package state

import (
	"reflect"
	"testing"

	"golang.org/x/net/html"

	"github.com/absmartly/preview-engine/internal/dom"
	"github.com/absmartly/preview-engine/internal/marker"
	"github.com/absmartly/preview-engine/internal/sanitize"
)

func testElement(t *testing.T, src string) (*dom.Page, *html.Node) {
	t.Helper()
	page, err := dom.Parse([]byte(src), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := page.FindByID("t")
	if n == nil {
		t.Fatal("test markup needs an element with id=t")
	}
	return page, n
}

func newTestRestorer() *Restorer {
	return NewRestorer(sanitize.New(), nil)
}

func TestCaptureIsDeep(t *testing.T) {
	_, n := testElement(t, `<div id="t" class="a b" style="color: red" title="greet">Hello <b>world</b></div>`)

	st := Capture(n)

	if st.TextContent != "Hello world" {
		t.Errorf("TextContent = %q", st.TextContent)
	}
	if st.InnerHTML != "Hello <b>world</b>" {
		t.Errorf("InnerHTML = %q", st.InnerHTML)
	}
	if st.Attributes["title"] != "greet" {
		t.Errorf("Attributes = %v", st.Attributes)
	}
	if st.Styles["color"] != "red" {
		t.Errorf("Styles = %v", st.Styles)
	}
	if !reflect.DeepEqual(st.ClassList, []string{"a", "b"}) {
		t.Errorf("ClassList = %v", st.ClassList)
	}

	// Later mutation must not leak into the snapshot.
	dom.SetText(n, "changed")
	dom.SetAttr(n, "title", "changed")
	dom.AddClass(n, "c")
	if st.TextContent != "Hello world" || st.Attributes["title"] != "greet" || len(st.ClassList) != 2 {
		t.Error("snapshot aliased live element state")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	_, n := testElement(t, `<div id="t" class="a b" style="color: red" title="greet">Hello <b>world</b></div>`)
	st := Capture(n)

	// Simulate a full preview mutation.
	dom.SetText(n, "changed")
	dom.SetAttr(n, "title", "other")
	dom.SetAttr(n, "data-added", "1")
	dom.SetStyleProperty(n, "color", "blue", true)
	dom.AddClass(n, "c")
	dom.SetAttr(n, marker.AttrExperiment, "exp-1")
	dom.SetAttr(n, marker.AttrModified, "true")

	newTestRestorer().Restore(n, st)

	if got := dom.Text(n); got != "Hello world" {
		t.Errorf("text = %q", got)
	}
	if got := dom.InnerHTML(n); got != "Hello <b>world</b>" {
		t.Errorf("innerHTML = %q", got)
	}
	if got := dom.GetAttr(n, "title"); got != "greet" {
		t.Errorf("title = %q", got)
	}
	if dom.HasAttr(n, "data-added") {
		t.Error("attribute added after capture survived restore")
	}
	if got := dom.StyleMap(n); !reflect.DeepEqual(got, map[string]string{"color": "red"}) {
		t.Errorf("styles = %v", got)
	}
	if got := dom.ClassList(n); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("classes = %v", got)
	}
	if dom.HasAttr(n, marker.AttrExperiment) || dom.HasAttr(n, marker.AttrModified) {
		t.Error("tracking markers survived restore")
	}
}

func TestRestoreRemovesClassWhenNoneCaptured(t *testing.T) {
	_, n := testElement(t, `<div id="t">x</div>`)
	st := Capture(n)

	dom.AddClass(n, "injected")
	newTestRestorer().Restore(n, st)

	if dom.HasAttr(n, "class") {
		t.Errorf("class attribute should be gone, got %q", dom.GetAttr(n, "class"))
	}
}

func TestRestoreKeepsEmptyClassAttr(t *testing.T) {
	_, n := testElement(t, `<div id="t" class="">x</div>`)
	st := Capture(n)

	dom.AddClass(n, "injected")
	newTestRestorer().Restore(n, st)

	if !dom.HasAttr(n, "class") {
		t.Error("empty class attribute was captured and should be reinstated")
	}
	if got := dom.GetAttr(n, "class"); got != "" {
		t.Errorf("class = %q, want empty", got)
	}
}

func TestRestoreSkipsStructuralInnerHTML(t *testing.T) {
	page, _ := testElement(t, `<div id="t">x</div>`)
	body := page.Body()

	st := Capture(body)
	if err := dom.SetInnerHTML(body, `<p id="injected">host</p>`); err != nil {
		t.Fatalf("SetInnerHTML: %v", err)
	}

	newTestRestorer().Restore(body, st)

	// Content injected into a structural container must survive.
	if page.FindByID("injected") == nil {
		t.Error("structural container content was rewritten")
	}
}

func TestRestoreSanitizesSnapshot(t *testing.T) {
	_, n := testElement(t, `<div id="t">x</div>`)

	st := Capture(n)
	st.InnerHTML = `<script>evil()</script><p>ok</p>`

	newTestRestorer().Restore(n, st)

	if got := dom.InnerHTML(n); got != "<p>ok</p>" {
		t.Errorf("innerHTML = %q", got)
	}
}

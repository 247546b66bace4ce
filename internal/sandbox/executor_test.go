package sandbox

import (
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/absmartly/preview-engine/internal/dom"
)

func testContext(t *testing.T, src, pageURL string) (Context, *dom.Page, *html.Node) {
	t.Helper()
	page, err := dom.Parse([]byte(src), pageURL)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	el := page.FindByID("t")
	return Context{Element: el, ExperimentName: "exp-42", Page: page}, page, el
}

func TestExecuteTextContent(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, el := testContext(t, `<div id="t">old</div>`, "")

	if !exec.Execute(`element.textContent = "hello from " + experimentName`, ctx) {
		t.Fatal("execution failed")
	}
	if got := dom.Text(el); got != "hello from exp-42" {
		t.Errorf("text = %q", got)
	}
}

func TestExecuteInnerHTMLSanitized(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, el := testContext(t, `<div id="t">old</div>`, "")

	if !exec.Execute(`element.innerHTML = '<b>ok</b><script>bad()</scr' + 'ipt>'`, ctx) {
		t.Fatal("execution failed")
	}
	if got := dom.InnerHTML(el); got != "<b>ok</b>" {
		t.Errorf("innerHTML = %q", got)
	}
}

func TestExecuteAttributes(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, el := testContext(t, `<div id="t" title="greet">x</div>`, "")

	code := `
		if (element.getAttribute("title") !== "greet") throw new Error("read failed");
		if (element.getAttribute("missing") !== null) throw new Error("missing should be null");
		element.setAttribute("data-x", "1");
		element.removeAttribute("title");
		if (element.hasAttribute("title")) throw new Error("remove failed");
	`
	if !exec.Execute(code, ctx) {
		t.Fatal("execution failed")
	}
	if got := dom.GetAttr(el, "data-x"); got != "1" {
		t.Errorf("data-x = %q", got)
	}
	if dom.HasAttr(el, "title") {
		t.Error("title still present")
	}
}

func TestExecuteStyleAndClassList(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, el := testContext(t, `<div id="t" class="a">x</div>`, "")

	code := `
		element.style.setProperty("color", "red", "important");
		element.style.setProperty("margin", "0");
		element.style.removeProperty("margin");
		element.classList.add("b");
		element.classList.remove("a");
		if (!element.classList.contains("b")) throw new Error("classList broken");
		if (element.style.getPropertyValue("color") !== "red") throw new Error("style read broken");
	`
	if !exec.Execute(code, ctx) {
		t.Fatal("execution failed")
	}
	if got := dom.GetAttr(el, "style"); got != "color: red !important" {
		t.Errorf("style = %q", got)
	}
	if got := dom.GetAttr(el, "class"); got != "b" {
		t.Errorf("class = %q", got)
	}
}

func TestExecuteDocumentQueries(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, page, _ := testContext(t,
		`<html><head><title>Shop</title></head><body><div id="t">x</div><p class="note">a</p><p class="note">b</p></body></html>`, "")

	code := `
		if (document.title !== "Shop") throw new Error("title");
		if (document.querySelector(".missing") !== null) throw new Error("missing selector");
		document.querySelector(".note").textContent = "first changed";
		if (document.querySelectorAll(".note").length !== 2) throw new Error("querySelectorAll");
		document.getElementById("t").textContent = "by id";
	`
	if !exec.Execute(code, ctx) {
		t.Fatal("execution failed")
	}
	notes := page.Find(".note")
	if got := dom.Text(notes[0]); got != "first changed" {
		t.Errorf("querySelector mutation lost: %q", got)
	}
	if got := dom.Text(page.FindByID("t")); got != "by id" {
		t.Errorf("getElementById mutation lost: %q", got)
	}
}

func TestExecuteWindowLocation(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, _ := testContext(t, `<div id="t">x</div>`, "https://example.com/shop?q=1#top")

	code := `
		var loc = window.location;
		if (loc.hostname !== "example.com") throw new Error("hostname " + loc.hostname);
		if (loc.pathname !== "/shop") throw new Error("pathname " + loc.pathname);
		if (loc.search !== "?q=1") throw new Error("search " + loc.search);
		if (loc.hash !== "#top") throw new Error("hash " + loc.hash);
	`
	if !exec.Execute(code, ctx) {
		t.Fatal("execution failed")
	}
}

func TestExecuteNilElement(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	page, err := dom.Parse([]byte("<p>x</p>"), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ok := exec.Execute(`if (typeof element !== "undefined") throw new Error("element should be undefined")`,
		Context{Page: page})
	if !ok {
		t.Error("execution with nil element failed")
	}
}

func TestExecuteDefaultExperimentName(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, el := testContext(t, `<div id="t">x</div>`, "")
	ctx.ExperimentName = ""

	if !exec.Execute(`element.textContent = experimentName`, ctx) {
		t.Fatal("execution failed")
	}
	if got := dom.Text(el); got != "__preview__" {
		t.Errorf("default experiment name = %q", got)
	}
}

func TestExecuteRejectsDangerousCode(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, el := testContext(t, `<div id="t">old</div>`, "")

	if exec.Execute(`element.textContent = Function("return 1")()`, ctx) {
		t.Error("dangerous code executed")
	}
	if got := dom.Text(el); got != "old" {
		t.Errorf("element mutated by rejected script: %q", got)
	}
}

func TestExecuteFailureModes(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, _ := testContext(t, `<div id="t">x</div>`, "")

	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"runtime throw", `throw new Error("boom")`},
		{"syntax error", `this is not javascript`},
		{"undefined reference", `definitelyNotDefined()`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if exec.Execute(tt.code, ctx) {
				t.Errorf("Execute(%q) reported success", tt.code)
			}
		})
	}
}

func TestExecuteTimeout(t *testing.T) {
	exec := NewExecutor(Config{Timeout: 100 * time.Millisecond}, nil)
	ctx, _, _ := testContext(t, `<div id="t">x</div>`, "")

	start := time.Now()
	if exec.Execute(`while (true) {}`, ctx) {
		t.Error("infinite loop reported success")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("interrupt took too long: %v", elapsed)
	}
}

func TestExecuteHardenedGlobals(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, _ := testContext(t, `<div id="t">x</div>`, "")

	code := `
		if (typeof require !== "undefined") throw new Error("require leaked");
		if (typeof process !== "undefined") throw new Error("process leaked");
		setTimeout(function() { throw new Error("timer ran") }, 0);
		setInterval(function() { throw new Error("timer ran") }, 0);
	`
	if !exec.Execute(code, ctx) {
		t.Error("hardened globals check failed")
	}
}

func TestExecuteIsolatedBetweenRuns(t *testing.T) {
	exec := NewExecutor(Config{}, nil)
	ctx, _, _ := testContext(t, `<div id="t">x</div>`, "")

	if !exec.Execute(`globalThis.leaked = "yes"`, ctx) {
		t.Fatal("first execution failed")
	}
	ok := exec.Execute(`if (typeof leaked !== "undefined") throw new Error("state leaked between runs")`, ctx)
	if !ok {
		t.Error("state persisted across executions")
	}
}

package sandbox

import (
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/absmartly/preview-engine/internal/dom"
	"github.com/absmartly/preview-engine/internal/logging"
	"github.com/absmartly/preview-engine/internal/sanitize"
)

// bridge builds the host-side proxies handed to sandboxed code. Proxies
// expose only whitelisted operations over the page; they hold no reference
// to executor or preview-manager state.
type bridge struct {
	vm        *goja.Runtime
	page      *dom.Page
	sanitizer *sanitize.Sanitizer
	logger    *logging.Logger

	doc *goja.Object
}

func newBridge(vm *goja.Runtime, page *dom.Page, sanitizer *sanitize.Sanitizer, logger *logging.Logger) *bridge {
	return &bridge{vm: vm, page: page, sanitizer: sanitizer, logger: logger}
}

// elementValue wraps a DOM node for script access. A nil node maps to
// undefined, matching the optional element binding.
func (b *bridge) elementValue(n *html.Node) goja.Value {
	if n == nil {
		return goja.Undefined()
	}

	obj := b.vm.NewObject()

	b.defineAccessor(obj, "textContent",
		func() string { return dom.Text(n) },
		func(v string) { dom.SetText(n, v) },
	)
	b.defineAccessor(obj, "innerHTML",
		func() string { return dom.InnerHTML(n) },
		func(v string) {
			if err := dom.SetInnerHTML(n, b.sanitizer.Sanitize(v)); err != nil {
				b.logger.Warn("innerHTML assignment failed", zap.Error(err))
			}
		},
	)
	b.defineAccessor(obj, "id",
		func() string { return dom.GetAttr(n, "id") },
		func(v string) { dom.SetAttr(n, "id", v) },
	)
	b.defineAccessor(obj, "className",
		func() string { return dom.GetAttr(n, "class") },
		func(v string) { dom.SetAttr(n, "class", v) },
	)

	obj.Set("tagName", strings.ToUpper(n.Data))

	obj.Set("getAttribute", func(name string) goja.Value {
		if !dom.HasAttr(n, name) {
			return goja.Null()
		}
		return b.vm.ToValue(dom.GetAttr(n, name))
	})
	obj.Set("setAttribute", func(name, value string) {
		dom.SetAttr(n, name, value)
	})
	obj.Set("removeAttribute", func(name string) {
		dom.RemoveAttr(n, name)
	})
	obj.Set("hasAttribute", func(name string) bool {
		return dom.HasAttr(n, name)
	})

	obj.Set("style", b.styleObject(n))
	obj.Set("classList", b.classListObject(n))

	return obj
}

func (b *bridge) styleObject(n *html.Node) *goja.Object {
	style := b.vm.NewObject()
	style.Set("setProperty", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		prop := call.Arguments[0].String()
		value := call.Arguments[1].String()
		important := len(call.Arguments) > 2 &&
			strings.EqualFold(call.Arguments[2].String(), "important")
		dom.SetStyleProperty(n, prop, value, important)
		return goja.Undefined()
	})
	style.Set("getPropertyValue", func(prop string) string {
		v, _ := dom.SplitImportant(dom.StyleMap(n)[dom.CamelToKebab(prop)])
		return v
	})
	style.Set("removeProperty", func(prop string) {
		prop = dom.CamelToKebab(prop)
		decls := dom.ParseDeclarations(dom.GetAttr(n, "style"))
		kept := decls[:0]
		for _, d := range decls {
			if d.Property != prop {
				kept = append(kept, d)
			}
		}
		dom.SetAttr(n, "style", dom.FormatDeclarations(kept))
	})
	return style
}

func (b *bridge) classListObject(n *html.Node) *goja.Object {
	cl := b.vm.NewObject()
	cl.Set("add", func(class string) {
		dom.AddClass(n, class)
	})
	cl.Set("remove", func(class string) {
		var kept []string
		for _, c := range dom.ClassList(n) {
			if c != class {
				kept = append(kept, c)
			}
		}
		dom.SetClassList(n, kept)
	})
	cl.Set("contains", func(class string) bool {
		for _, c := range dom.ClassList(n) {
			if c == class {
				return true
			}
		}
		return false
	})
	return cl
}

// documentObject exposes read/query access to the page.
func (b *bridge) documentObject() *goja.Object {
	if b.doc != nil {
		return b.doc
	}

	doc := b.vm.NewObject()
	doc.Set("querySelector", func(selector string) goja.Value {
		nodes := b.find(selector)
		if len(nodes) == 0 {
			return goja.Null()
		}
		return b.elementValue(nodes[0])
	})
	doc.Set("querySelectorAll", func(selector string) goja.Value {
		nodes := b.find(selector)
		items := make([]interface{}, 0, len(nodes))
		for _, n := range nodes {
			items = append(items, b.elementValue(n))
		}
		return b.vm.NewArray(items...)
	})
	doc.Set("getElementById", func(id string) goja.Value {
		if b.page == nil {
			return goja.Null()
		}
		if n := b.page.FindByID(id); n != nil {
			return b.elementValue(n)
		}
		return goja.Null()
	})
	if b.page != nil {
		doc.Set("title", b.page.Title())
	}

	b.doc = doc
	return doc
}

// windowObject exposes the navigation location and the document.
func (b *bridge) windowObject() *goja.Object {
	win := b.vm.NewObject()

	loc := b.vm.NewObject()
	if b.page != nil {
		u := b.page.Location()
		loc.Set("href", u.String())
		loc.Set("protocol", u.Scheme+":")
		loc.Set("host", u.Host)
		loc.Set("hostname", u.Hostname())
		loc.Set("pathname", u.Path)
		if u.RawQuery != "" {
			loc.Set("search", "?"+u.RawQuery)
		} else {
			loc.Set("search", "")
		}
		if u.Fragment != "" {
			loc.Set("hash", "#"+u.Fragment)
		} else {
			loc.Set("hash", "")
		}
	}
	win.Set("location", loc)
	win.Set("document", b.documentObject())

	return win
}

// consoleObject routes script console output into the engine log.
func (b *bridge) consoleObject(experiment string) *goja.Object {
	console := b.vm.NewObject()
	console.Set("log", b.makeConsoleFunc(experiment, "log"))
	console.Set("info", b.makeConsoleFunc(experiment, "info"))
	console.Set("warn", b.makeConsoleFunc(experiment, "warn"))
	console.Set("error", b.makeConsoleFunc(experiment, "error"))
	console.Set("debug", b.makeConsoleFunc(experiment, "debug"))
	return console
}

func (b *bridge) makeConsoleFunc(experiment, level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg strings.Builder
		for i, arg := range call.Arguments {
			if i > 0 {
				msg.WriteByte(' ')
			}
			msg.WriteString(arg.String())
		}

		fields := []zap.Field{
			zap.String("message", msg.String()),
			zap.String("experiment", experiment),
		}
		switch level {
		case "warn":
			b.logger.Warn("sandbox console", fields...)
		case "error":
			b.logger.Error("sandbox console", fields...)
		case "debug":
			b.logger.Debug("sandbox console", fields...)
		default:
			b.logger.Info("sandbox console", fields...)
		}
		return goja.Undefined()
	}
}

// defineAccessor installs a JS property backed by host getter/setter funcs.
func (b *bridge) defineAccessor(obj *goja.Object, name string, get func() string, set func(string)) {
	_ = obj.DefineAccessorProperty(name,
		b.vm.ToValue(get),
		b.vm.ToValue(set),
		goja.FLAG_FALSE,
		goja.FLAG_TRUE,
	)
}

func (b *bridge) find(selector string) []*html.Node {
	if b.page == nil {
		return nil
	}
	return b.page.Find(selector)
}

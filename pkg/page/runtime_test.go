package page

import (
	"encoding/json"
	"html"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"

	"github.com/matzehuels/vizpage/pkg/chart"
	"github.com/matzehuels/vizpage/pkg/codec"
	"github.com/matzehuels/vizpage/pkg/table"
)

// fakeDOM provides just enough of document and CustomEvent for the runtime.
const fakeDOM = `
var __listeners = {};
var __elements = {};
var __errors = [];
var console = { error: function (m) { __errors.push(String(m)); } };
function CustomEvent(type, init) { this.type = type; this.detail = init ? init.detail : undefined; }
var document = {
  addEventListener: function (t, f) { (__listeners[t] = __listeners[t] || []).push(f); },
  removeEventListener: function (t, f) {
    var l = __listeners[t] || [];
    var i = l.indexOf(f);
    if (i >= 0) l.splice(i, 1);
  },
  dispatchEvent: function (ev) {
    (__listeners[ev.type] || []).slice().forEach(function (f) { f(ev); });
    return true;
  },
  getElementById: function (id) { return __elements[id] || null; },
  createElement: function (tag) {
    return { tagName: tag, children: [], appendChild: function (c) { this.children.push(c); } };
  }
};
var events = [];
document.addEventListener("data_loaded", function (e) { events.push("data_loaded:" + e.detail.name); });
document.addEventListener("all_data_loaded", function () { events.push("all_data_loaded"); });
`

func newVM(t *testing.T) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	if _, err := vm.RunString(fakeDOM); err != nil {
		t.Fatalf("fake DOM: %v", err)
	}
	if _, err := vm.RunString(Runtime()); err != nil {
		t.Fatalf("runtime: %v", err)
	}
	return vm
}

func run(t *testing.T, vm *goja.Runtime, src string) goja.Value {
	t.Helper()
	v, err := vm.RunString(src)
	if err != nil {
		t.Fatalf("RunString(%q): %v", src, err)
	}
	return v
}

func jsonOf(t *testing.T, vm *goja.Runtime, expr string) string {
	t.Helper()
	return run(t, vm, "JSON.stringify("+expr+")").String()
}

func TestRuntimeGatedInit(t *testing.T) {
	for _, order := range [][]string{{"A", "B"}, {"B", "A"}} {
		t.Run(strings.Join(order, "-then-"), func(t *testing.T) {
			vm := newVM(t)
			run(t, vm, `
var calls = [];
vizpage.register("A", {format: "csv_external", src: "data/a.csv", columns: []});
vizpage.register("B", {format: "csv_external", src: "data/b.csv", columns: []});
vizpage.whenLoaded(["A", "B"], function (data, container) {
  calls.push(Object.keys(data).sort().join(",") + ":" + data.A.length + data.B.length);
}, "chart_1");
`)
			run(t, vm, `vizpage.provide("`+order[0]+`", [{v: 1}]);`)
			if n := run(t, vm, "calls.length").ToInteger(); n != 0 {
				t.Fatalf("init ran after one of two datasets (%d calls)", n)
			}
			run(t, vm, `vizpage.provide("`+order[1]+`", [{v: 2}]);`)
			if got := jsonOf(t, vm, "calls"); got != `["A,B:11"]` {
				t.Errorf("calls = %s, want [\"A,B:11\"]", got)
			}

			// Unrelated and repeated signals must not re-run the init.
			run(t, vm, `vizpage.provide("C", []); vizpage.provide("A", [{v: 3}]);`)
			if n := run(t, vm, "calls.length").ToInteger(); n != 1 {
				t.Errorf("init ran %d times, want 1", n)
			}

			want := `["data_loaded:` + order[0] + `","data_loaded:` + order[1] + `","all_data_loaded","data_loaded:C"]`
			if got := jsonOf(t, vm, "events"); got != want {
				t.Errorf("events = %s, want %s", got, want)
			}
		})
	}
}

func TestRuntimeInitAfterDataAlreadyLoaded(t *testing.T) {
	vm := newVM(t)
	run(t, vm, `
var calls = 0;
vizpage.provide("A", []);
vizpage.whenLoaded(["A"], function () { calls++; }, "");
vizpage.whenLoaded([], function () { calls++; }, "");
`)
	if n := run(t, vm, "calls").ToInteger(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestRuntimeAllDataLoaded(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "no datasets",
			src:  `vizpage.start(); vizpage.start();`,
			want: `["all_data_loaded"]`,
		},
		{
			name: "one dataset",
			src:  `vizpage.register("A", {format: "csv_external", src: "data/a.csv", columns: []}); vizpage.provide("A", []);`,
			want: `["data_loaded:A","all_data_loaded"]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := newVM(t)
			run(t, vm, tt.src)
			if got := jsonOf(t, vm, "events"); got != tt.want {
				t.Errorf("events = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRuntimeLoadDatasetThrows(t *testing.T) {
	vm := newVM(t)
	_, err := vm.RunString(`vizpage.loadDataset("missing")`)
	if err == nil || !strings.Contains(err.Error(), "dataset not loaded: missing") {
		t.Errorf("loadDataset(missing) error = %v", err)
	}
	run(t, vm, `vizpage.provide("present", [{a: 1}]);`)
	if got := jsonOf(t, vm, `vizpage.loadDataset("present")`); got != `[{"a":1}]` {
		t.Errorf("loadDataset(present) = %s", got)
	}
}

func TestRuntimeInitErrorIsContained(t *testing.T) {
	vm := newVM(t)
	run(t, vm, `
var el = document.createElement("section");
__elements["boom"] = el;
var second = false;
vizpage.whenLoaded([], function () { throw new Error("kaput"); }, "boom");
vizpage.whenLoaded([], function () { second = true; }, "");
`)
	if !run(t, vm, "second").ToBoolean() {
		t.Error("a failing init prevented later inits")
	}
	if got := run(t, vm, "el.children[0].textContent").String(); !strings.Contains(got, "kaput") {
		t.Errorf("error not reported in container: %q", got)
	}
}

func tricky(t *testing.T) *table.Table {
	t.Helper()
	b := table.NewBuilder(
		table.Column{Name: "id", Kind: table.KindInt},
		table.Column{Name: "value", Kind: table.KindFloat},
		table.Column{Name: "label", Kind: table.KindString},
		table.Column{Name: "flag", Kind: table.KindBool},
		table.Column{Name: "at", Kind: table.KindTime},
	)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	rows := [][]any{
		{1, 0.1, "plain", true, ts},
		{2, nil, "", false, nil},
		{nil, 1e-7, nil, nil, ts},
		{4, -2.5, "comma, \"quoted\"", true, ts},
		{5, 1e300, "multi\nline\r\nvalue", false, ts},
	}
	for _, r := range rows {
		if err := b.Append(r...); err != nil {
			t.Fatal(err)
		}
	}
	return b.MustBuild()
}

// TestRuntimeParseCSVMatchesJSON checks that the browser CSV parser recovers
// exactly the rows the JSON encoding carries, nulls and empty strings
// included.
func TestRuntimeParseCSVMatchesJSON(t *testing.T) {
	tbl := tricky(t)
	csvEnc, err := codec.Encode("t", tbl, codec.CSVEmbedded)
	if err != nil {
		t.Fatal(err)
	}
	jsonEnc, err := codec.Encode("t", tbl, codec.JSONEmbedded)
	if err != nil {
		t.Fatal(err)
	}

	vm := newVM(t)
	if err := vm.Set("payload", string(csvEnc.Payload)); err != nil {
		t.Fatal(err)
	}
	cols, _ := json.Marshal(loaderColumns(csvEnc.Columns))
	got := jsonOf(t, vm, "vizpage.parseCSV(payload, "+string(cols)+")")

	var fromCSV, fromJSON []map[string]any
	if err := json.Unmarshal([]byte(got), &fromCSV); err != nil {
		t.Fatalf("unmarshal js output: %v", err)
	}
	if err := json.Unmarshal(jsonEnc.Payload, &fromJSON); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fromCSV, fromJSON) {
		t.Errorf("parseCSV rows differ from JSON rows\n got: %v\nwant: %v", fromCSV, fromJSON)
	}
}

func loaderColumns(cols []table.Column) []map[string]string {
	out := make([]map[string]string, len(cols))
	for i, c := range cols {
		out[i] = map[string]string{"name": c.Name, "kind": c.Kind.String()}
	}
	return out
}

func TestRuntimeParseCSVSpecialFloats(t *testing.T) {
	vm := newVM(t)
	got := run(t, vm, `
var r = vizpage.parseCSV("f\nNaN\n+Inf\n-Inf\n\n", [{name: "f", kind: "float"}]);
[isNaN(r[0].f), r[1].f === Infinity, r[2].f === -Infinity, r[3].f === null].join(",")
`).String()
	if got != "true,true,true,true" {
		t.Errorf("special floats = %s", got)
	}
}

func TestRuntimeFromObjects(t *testing.T) {
	vm := newVM(t)
	got := jsonOf(t, vm, `vizpage.fromObjects([{b: true, a: 1}, {a: 2}], [{name: "a", kind: "int"}, {name: "b", kind: "bool"}])`)
	if want := `[{"a":1,"b":true},{"a":2,"b":null}]`; got != want {
		t.Errorf("fromObjects() = %s, want %s", got, want)
	}
}

func TestRuntimeAggregate(t *testing.T) {
	vm := newVM(t)
	run(t, vm, `var rows = [{k: "a", v: 1}, {k: "b", v: 2}, {k: "a", v: 3}, {k: "b", v: null}, {k: null, v: 5}];`)
	tests := []struct{ how, want string }{
		{"sum", `{"keys":["a","b",""],"values":[4,2,5]}`},
		{"mean", `{"keys":["a","b",""],"values":[2,2,5]}`},
		{"count", `{"keys":["a","b",""],"values":[2,2,1]}`},
	}
	for _, tt := range tests {
		if got := jsonOf(t, vm, `vizpage.aggregate(rows, "k", "v", "`+tt.how+`")`); got != tt.want {
			t.Errorf("aggregate(%s) = %s, want %s", tt.how, got, tt.want)
		}
	}
	if got := jsonOf(t, vm, `vizpage.unique([1, "1", 2, null, 1])`); got != `[1,"1",2]` {
		t.Errorf("unique() = %s", got)
	}
}

var containerRe = regexp.MustCompile(`(?s)<div hidden id="([^"]+)"[^>]*>(.*?)</div>`)

// TestAssembledDocumentRuns executes the generated bootstrap script against
// the embedded containers and checks each chart sees its data.
func TestAssembledDocumentRuns(t *testing.T) {
	for _, f := range []codec.Format{codec.CSVEmbedded, codec.JSONEmbedded} {
		t.Run(string(f), func(t *testing.T) {
			reg := salesMeta()
			p, err := New(Config{
				Title:    "Run",
				Format:   f,
				Datasets: reg,
				Charts: []chart.Chart{
					fakeChart{id: "c1", deps: []string{"sales"}, js: `seen.push("c1:" + data.sales.length + ":" + data.sales[1].y);`},
					fakeChart{id: "c2", deps: []string{"sales", "meta"}, js: `seen.push("c2:" + data.meta[0].note);`},
				},
			})
			if err != nil {
				t.Fatal(err)
			}
			doc := mustAssemble(t, p)

			vm := newVM(t)
			run(t, vm, "var seen = [];")
			for _, m := range containerRe.FindAllStringSubmatch(doc, -1) {
				el := vm.NewObject()
				_ = el.Set("textContent", html.UnescapeString(m[2]))
				_ = vm.Get("__elements").ToObject(vm).Set(m[1], el)
			}
			boot := doc[strings.LastIndex(doc, "<script>")+len("<script>") : strings.LastIndex(doc, "</script>")]
			run(t, vm, boot)

			if got := jsonOf(t, vm, "seen"); got != `["c1:3:null","c2:unused"]` {
				t.Errorf("seen = %s", got)
			}
			if got := jsonOf(t, vm, "events"); got != `["data_loaded:sales","data_loaded:meta","all_data_loaded"]` {
				t.Errorf("events = %s", got)
			}
			if got := jsonOf(t, vm, "__errors"); got != "[]" {
				t.Errorf("runtime errors: %s", got)
			}
		})
	}
}

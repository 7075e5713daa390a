package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/dataproc/internal/core"
	"github.com/a-h/templ"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func fileBatch() *core.Batch {
	return core.NewBatch(core.SourceFile, "people.csv", []core.Record{
		core.NewRecord(
			core.Field{Name: core.FieldID, Value: core.Int(1)},
			core.Field{Name: "first_name", Value: core.String("<Ann>")},
			core.Field{Name: "age", Value: core.Int(30)},
			core.Field{Name: core.FieldProcessed, Value: core.Bool(true)},
		),
		core.NewRecord(
			core.Field{Name: core.FieldID, Value: core.Int(2)},
			core.Field{Name: "first_name", Value: core.String("Bo")},
			core.Field{Name: core.FieldProcessed, Value: core.Bool(true)},
		),
	})
}

func TestPreview_Empty(t *testing.T) {
	for _, b := range []*core.Batch{nil, core.NewBatch(core.SourceText, "", nil)} {
		out := renderString(t, Preview(b, ModeTable))
		if !strings.Contains(out, "No Data to Preview") {
			t.Errorf("empty state missing: %s", out)
		}
	}
}

func TestPreview_Table(t *testing.T) {
	out := renderString(t, Preview(fileBatch(), ModeTable))

	for _, want := range []string{
		"2 items processed",
		"File Upload",
		"<th>first name</th>",
		"<th> processed</th>",
		"<td>&lt;Ann&gt;</td>",
		"<td>30</td>",
		"<td>true</td>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q", want)
		}
	}
	if strings.Contains(out, "<Ann>") {
		t.Error("cell value not escaped")
	}
	// The second record has no age; the cell renders empty.
	if !strings.Contains(out, "<td>Bo</td><td></td>") {
		t.Errorf("missing empty cell for absent key: %s", out)
	}
}

func TestPreview_List(t *testing.T) {
	out := renderString(t, Preview(fileBatch(), ModeList))

	for _, want := range []string{"Item #1", "Item #2", "<dt>first name</dt>", `data-mode="list"`} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q", want)
		}
	}
}

func TestPreview_TextSourceBadge(t *testing.T) {
	records, err := core.TokenizeText("hello world")
	if err != nil {
		t.Fatalf("TokenizeText() error = %v", err)
	}
	out := renderString(t, Preview(core.NewBatch(core.SourceText, "", records), "bogus"))

	if !strings.Contains(out, "Text Input") {
		t.Error("missing text source badge")
	}
	if !strings.Contains(out, "1 items processed") {
		t.Error("missing summary")
	}
	if !strings.Contains(out, `data-mode="table"`) {
		t.Error("unknown mode did not fall back to table")
	}
}

func TestErrorAlert(t *testing.T) {
	out := renderString(t, ErrorAlert("Bad <file>", "Try again", "FILE002"))
	for _, want := range []string{"Bad &lt;file&gt;", "Try again", "Code: FILE002", `role="alert"`} {
		if !strings.Contains(out, want) {
			t.Errorf("alert missing %q", want)
		}
	}
}

func TestPage(t *testing.T) {
	out := renderString(t, Page(PageData{Batch: fileBatch(), Dev: true}))
	for _, want := range []string{
		"<title>Data Processor</title>",
		`action="/api/ingest/text"`,
		`accept=".xlsx,.xls,.csv"`,
		"development",
		"2 items processed",
		"/static/app.js",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHeaderLabel(t *testing.T) {
	tests := map[string]string{
		"_processed": " processed",
		"first_name": "first name",
		"a_b_c":      "a b_c",
		"plain":      "plain",
	}
	for in, want := range tests {
		if got := headerLabel(in); got != want {
			t.Errorf("headerLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreview_EscapesFileName(t *testing.T) {
	b := core.NewBatch(core.SourceFile, `<img src=x>.csv`, fileBatch().Records)
	out := renderString(t, Preview(b, ModeTable))

	if strings.Contains(out, "<img") {
		t.Errorf("file name not escaped: %s", out)
	}
	if !strings.Contains(out, `<span class="file">&lt;img src=x&gt;.csv</span>`) {
		t.Errorf("file name missing: %s", out)
	}
}

func TestPreview_ActiveMode(t *testing.T) {
	out := renderString(t, Preview(fileBatch(), ModeList))

	if !strings.Contains(out, `class="mode active" data-mode="list"`) {
		t.Errorf("list button not active: %s", out)
	}
	if !strings.Contains(out, `class="mode" data-mode="table"`) {
		t.Errorf("table button should be inactive: %s", out)
	}
}

func TestPage_DropZone(t *testing.T) {
	out := renderString(t, Page(PageData{}))
	if !strings.Contains(out, `id="drop-zone"`) {
		t.Error("page missing drop zone")
	}
	if strings.Contains(out, "badge-dev") {
		t.Error("development badge rendered outside development")
	}
	if !strings.Contains(out, "No Data to Preview") {
		t.Error("page missing empty preview")
	}
}

func TestCellText(t *testing.T) {
	rec := fileBatch().Records[1]
	if got := cellText(rec, "first_name"); got != "Bo" {
		t.Errorf("cellText(first_name) = %q, want Bo", got)
	}
	if got := cellText(rec, "age"); got != "" {
		t.Errorf("cellText(age) = %q, want empty", got)
	}
}

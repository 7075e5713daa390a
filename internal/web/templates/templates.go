// Package templates renders the HTML for the local UI. Components are
// written in .templ files; run `templ generate` after editing them.
package templates

import (
	"strings"

	"github.com/JonMunkholm/dataproc/internal/core"
)

// View modes for the preview panel.
const (
	ModeTable = "table"
	ModeList  = "list"
)

// ParseMode returns a known view mode, defaulting to the table.
func ParseMode(s string) string {
	if s == ModeList {
		return ModeList
	}
	return ModeTable
}

// PageData is the state the index page is rendered from.
type PageData struct {
	Title string
	Batch *core.Batch
	Mode  string
	Dev   bool
}

func (d PageData) title() string {
	if d.Title == "" {
		return "Data Processor"
	}
	return d.Title
}

// headerLabel turns a record key into a column heading by replacing its
// first underscore with a space.
func headerLabel(key string) string {
	return strings.Replace(key, "_", " ", 1)
}

// cellText is the display text of rec's value for key; absent keys render
// empty.
func cellText(rec core.Record, key string) string {
	v, _ := rec.Get(key)
	return v.Display()
}

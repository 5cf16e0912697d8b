// Package uistatic embeds the single-page operator console. The console is
// one self-contained HTML file, so every UI route serves the same document
// and client-side code decides what to show.
package uistatic

import (
	_ "embed"
	"net/http"
)

//go:embed console.html
var console []byte

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(console)
	})
}

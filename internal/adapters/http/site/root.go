// Package site serves the embedded public scoreboard page.
package site

import (
	"context"
	"net/http"
)

// Register attaches the scoreboard page to mux at / and /static/.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	mux.Handle("GET /{$}", files)
	mux.Handle("GET /static/", http.StripPrefix("/static", files))
}

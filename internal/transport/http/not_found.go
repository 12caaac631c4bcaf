package http

import "net/http"

// NotFoundHandler rejects unknown routes with the same JSON error envelope
// the rest of the API uses, naming the path that missed.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
}

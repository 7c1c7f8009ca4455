// Package client embeds the browser script that drives the sign-up wizard
// and serves it with a content-hash ETag.
package client

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

// ScriptName is the file name the script is served under.
const ScriptName = "signup.js"

//go:embed src/signup.js
var script []byte

var etag = func() string {
	sum := sha256.Sum256(script)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}()

// Script returns a copy of the embedded script.
func Script() []byte {
	return bytes.Clone(script)
}

// ETag returns the strong validator sent with the script.
func ETag() string {
	return etag
}

// Handler serves the script at ScriptName relative to where it is mounted.
// Any other path is not found, so the mount point never lists files.
// Clients revalidate on every load and get 304 while the build is unchanged.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/") != ScriptName {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("ETag", etag)
		http.ServeContent(w, r, ScriptName, time.Time{}, bytes.NewReader(script))
	})
}

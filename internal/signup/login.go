package signup

import (
	"bytes"
	"fmt"
	"html"
	"net/http"

	"github.com/gabrielmiguelok/signupkit/internal/website"
)

// LoginHandler serves the page the wizard redirects to. Authentication is
// not implemented; the page only confirms where the flow ends.
func LoginHandler(registerPath string) http.Handler {
	cfg := website.DefaultPageConfig()
	cfg.Title = "Sign in"
	cfg.Description = "Sign in to your account."

	body := fmt.Sprintf(`<div class="wizard-container">
<div class="wizard-header">
	<h1>Sign in</h1>
	<p>Your account is ready. Sign in to continue.</p>
</div>
<p class="form-footer">Need an account? <a href="%s">Register</a></p>
</div>`, html.EscapeString(registerPath))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		var buf bytes.Buffer
		if err := website.Page(cfg, body).Render(r.Context(), &buf); err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	})
}

// PageConfig is the document config for the wizard route.
func PageConfig() website.PageConfig {
	cfg := website.DefaultPageConfig()
	cfg.Title = "Create your account"
	cfg.Description = "Register in three short steps."
	return cfg
}

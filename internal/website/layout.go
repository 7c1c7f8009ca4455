package website

import (
	"bytes"
	"context"
	"io"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
)

// RootID is the id of the element the client patches with each render.
const RootID = "live-root"

// LiveLayout returns a layout that renders body as the live root of a full
// document and loads the client script.
func LiveLayout(cfg PageConfig) func(body core.Renderer) core.Renderer {
	cfg.Scripts = append(append([]string(nil), cfg.Scripts...), ClientScript)

	return func(body core.Renderer) core.Renderer {
		return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
			var buf bytes.Buffer
			buf.WriteString(`<main id="` + RootID + `" data-live-root>`)
			if err := body.Render(ctx, &buf); err != nil {
				return err
			}
			buf.WriteString(`</main>`)

			_, err := io.WriteString(w, RenderDocument(cfg, "", buf.String()))
			return err
		})
	}
}

// Page returns a renderer for a static document.
func Page(cfg PageConfig, body string) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, RenderDocument(cfg, "", body))
		return err
	})
}

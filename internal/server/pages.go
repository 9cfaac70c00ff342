package server

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	asserrors "github.com/conneroisu/assetry/internal/errors"
)

const pageStyle = `<style>
body{font-family:system-ui,-apple-system,sans-serif;margin:0;padding:40px;background:#f5f5f5;color:#222}
main{max-width:880px;margin:0 auto;background:#fff;padding:24px 32px;border-radius:8px;box-shadow:0 2px 10px rgba(0,0,0,.1)}
h1{border-bottom:2px solid #c0392b;padding-bottom:8px}
code,pre{font-family:ui-monospace,Menlo,monospace;font-size:13px}
li{margin:8px 0}
.task{color:#c0392b;font-weight:600}
.ok h1{border-color:#27ae60}
</style>`

func page(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title>%s</head><body>",
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, clientScript+"</body></html>")
		return err
	})
}

// notFoundPage is shown for paths missing from the build root. It carries the
// live reload client so it refreshes once the file is built.
func notFoundPage(urlPath string) templ.Component {
	return page("Not found", func(w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"<main><h1>404</h1><p><code>%s</code> is not in the build output.</p><p><a href=\"/\">Home</a> &middot; <a href=\"%s\">Build errors</a></p></main>",
			templ.EscapeString(urlPath), routeErrors)
		return err
	})
}

func errorsPage(errs []asserrors.BuildError) templ.Component {
	return page("Build errors", func(w io.Writer) error {
		if len(errs) == 0 {
			_, err := io.WriteString(w, `<main class="ok"><h1>No errors</h1><p>Every task finished cleanly.</p></main>`)
			return err
		}

		if _, err := fmt.Fprintf(w, "<main><h1>%d build error(s)</h1><ul>", len(errs)); err != nil {
			return err
		}
		for _, e := range errs {
			if _, err := fmt.Fprintf(w, `<li><span class="task">%s</span> <pre>%s</pre></li>`,
				templ.EscapeString(e.Task), templ.EscapeString(e.Error())); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul></main>")
		return err
	})
}

// Package templates renders the HTML fragments returned to HTMX requests.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/partflow/internal/core"
)

// ErrorAlert renders a dismissible error box with the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<p class="alert-message">%s</p>`, templ.EscapeString(message))
		if action != "" {
			fmt.Fprintf(&b, `<p class="alert-action">%s</p>`, templ.EscapeString(action))
		}
		fmt.Fprintf(&b, `<p class="alert-code">Код ошибки: %s</p>`, templ.EscapeString(code))
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ImportSummary renders the counts of a finished import and its skipped rows.
func ImportSummary(res core.ImportResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<div class="import-summary" data-import-id="%s">`, templ.EscapeString(res.ImportID))
		fmt.Fprintf(&b, `<p>Добавлено: <strong>%d</strong>, пропущено: <strong>%d</strong></p>`, res.Added, res.Skipped)
		if len(res.SkippedRows) > 0 {
			b.WriteString(`<table class="skipped-rows"><thead><tr><th>Строка</th><th>Обозначение</th><th>Причина</th></tr></thead><tbody>`)
			for _, row := range res.SkippedRows {
				fmt.Fprintf(&b, `<tr><td>%d</td><td>%s</td><td>%s</td></tr>`,
					row.Line, templ.EscapeString(row.Code), templ.EscapeString(row.Reason))
			}
			b.WriteString(`</tbody></table>`)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// PartCreated renders the confirmation shown after a manual creation.
func PartCreated(p *core.Part) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert alert-success" role="status">Деталь <strong>%s</strong> создана</div>`,
			templ.EscapeString(p.DesignationCode))
		return err
	})
}

package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// checkTemplate — HTML-представление чека, отправляемое в конвертер.
var checkTemplate = template.Must(template.New("check").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Check {{.Order.UUID}}</title></head>
<body>
  <h1>Check ({{.Kind}})</h1>
  <p>Order: {{.Order.UUID}}</p>
  <table>
    <tr><th>Item</th><th>Price</th><th>Count</th></tr>
    {{- range .Order.Items}}
    <tr><td>{{.Name}}</td><td>{{printf "%.2f" .Price}}</td><td>{{.Count}}</td></tr>
    {{- end}}
  </table>
  <p>Total: {{printf "%.2f" .Order.TotalPrice}}</p>
</body>
</html>
`))

// renderHTML строит HTML чека из его полей.
func renderHTML(check domain.Check) (string, error) {
	var sb strings.Builder
	if err := checkTemplate.Execute(&sb, check); err != nil {
		return "", fmt.Errorf("render check html: %w", err)
	}
	return sb.String(), nil
}

// artifactName строит имя артефакта: UUID заказа в имени делает файл
// трассируемым и исключает коллизии между заказами.
func artifactName(check domain.Check) string {
	return fmt.Sprintf("check_%s_%s.pdf", check.Order.UUID, check.PrinterID)
}

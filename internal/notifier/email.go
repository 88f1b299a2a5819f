// Package notifier sends the order-confirmation email. Delivery is best
// effort by contract: callers log failures and move on, the reconciliation
// itself never depends on the outcome.
package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/nikolayk812/payhook/internal/domain"
	"github.com/nikolayk812/payhook/internal/port"
	"github.com/wneessen/go-mail"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type emailNotifier struct {
	client *mail.Client
	from   string
}

func NewEmail(cfg EmailConfig) (port.Notifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is empty")
	}
	if cfg.From == "" {
		return nil, errors.New("from address is empty")
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	} else {
		// local relay without auth or TLS, e.g. mailpit in development
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail.NewClient: %w", err)
	}

	return &emailNotifier{
		client: client,
		from:   cfg.From,
	}, nil
}

func (n *emailNotifier) SendOrderConfirmation(ctx context.Context, order domain.Order) error {
	body, err := renderConfirmation(order)
	if err != nil {
		return fmt.Errorf("renderConfirmation: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("msg.From[%s]: %w", n.from, err)
	}
	if err := msg.To(order.CustomerEmail); err != nil {
		return fmt.Errorf("msg.To[%s]: %w", order.CustomerEmail, err)
	}

	msg.Subject(fmt.Sprintf("Your order %s is confirmed", shortOrderRef(order)))
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("client.DialAndSendWithContext: %w", err)
	}

	return nil
}

// shortOrderRef is the human-friendly order reference used in the subject,
// the first UUID block is enough to look the order up.
func shortOrderRef(order domain.Order) string {
	id := order.ID.String()
	if len(id) > 8 {
		id = id[:8]
	}
	return "#" + id
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<html>
<body>
  <h2>Thanks for your order {{.Ref}}</h2>
  <p>Placed on {{.Date}}</p>
  <table>
    <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th></tr>
    {{- range .Items}}
    <tr><td>{{.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">{{.Price}}</td></tr>
    {{- end}}
    <tr><td><b>Total</b></td><td></td><td align="right"><b>{{.Total}}</b></td></tr>
  </table>
  {{- with .Shipping}}
  <p>Shipping to: {{.Line1}}{{with .Line2}}, {{.}}{{end}}, {{.City}} {{.PostalCode}}, {{.Country}}</p>
  {{- end}}
</body>
</html>`))

type confirmationData struct {
	Ref      string
	Date     string
	Items    []confirmationItem
	Total    string
	Shipping *domain.Address
}

type confirmationItem struct {
	Name     string
	Quantity int32
	Price    string
}

// renderConfirmation works purely off the persisted order snapshot, it never
// consults live catalog data.
func renderConfirmation(order domain.Order) (string, error) {
	data := confirmationData{
		Ref:      shortOrderRef(order),
		Date:     order.CreatedAt.Format("2 Jan 2006"),
		Total:    formatMoney(order.Total),
		Shipping: order.Shipping,
	}

	for _, item := range order.Items {
		data.Items = append(data.Items, confirmationItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    formatMoney(item.UnitPrice),
		})
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("confirmationTmpl.Execute: %w", err)
	}

	return buf.String(), nil
}

func formatMoney(m domain.Money) string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

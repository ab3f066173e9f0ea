// Package printer renders payment receipts into an ESC/POS byte stream
// and delivers it to a thermal printer over a chunked BLE
// characteristic. It is independent of the sync engine: printing can
// succeed or fail without affecting whether a payment is recorded or
// uploaded.
package printer

import (
	"bytes"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/mvillareal/cobraruta/internal/models"
)

// DefaultWidth is the column width of a 58mm thermal roll.
const DefaultWidth = 32

// ESC/POS control sequences for generic thermal printers.
var (
	escInit        = []byte{0x1b, 0x40}
	escBoldOn      = []byte{0x1b, 0x45, 0x01}
	escBoldOff     = []byte{0x1b, 0x45, 0x00}
	escAlignLeft   = []byte{0x1b, 0x61, 0x00}
	escAlignCenter = []byte{0x1b, 0x61, 0x01}
	escDoubleOn    = []byte{0x1d, 0x21, 0x11}
	escDoubleOff   = []byte{0x1d, 0x21, 0x00}
	escFeed        = []byte{0x1b, 0x64, 0x04}
	escCut         = []byte{0x1d, 0x56, 0x00}
)

// Ticket is everything that ends up on paper for one collection event.
// Zero Width means DefaultWidth.
type Ticket struct {
	Merchant string
	Slogan   string

	ReceiptNumber string

	ClientName    string
	ClientPhone   string
	ClientAddress string
	PaymentDay    models.PaymentDay

	PaidAt  time.Time
	Kind    models.PaymentKind
	Method  models.PaymentMethod
	Concept string

	PreviousBalance decimal.Decimal
	AmountReceived  decimal.Decimal
	Moratory        decimal.Decimal
	NewBalance      decimal.Decimal
	Settled         bool

	CollectorName string

	// Reprint drops the previous-balance line (it is no longer known
	// exactly once later payments landed) and marks the copy as such.
	Reprint bool

	Width int
}

func (t Ticket) width() int {
	if t.Width > 0 {
		return t.Width
	}
	return DefaultWidth
}

// EncodeTicket serializes the ticket into the byte stream the printer
// consumes: init, formatted 32-column text interleaved with style
// codes, then feed and cut. All padding happens before any control
// codes are appended, so alignment on paper never depends on content
// length.
func EncodeTicket(t Ticket) []byte {
	w := t.width()
	var buf bytes.Buffer

	buf.Write(escInit)

	buf.Write(escAlignCenter)
	buf.Write(escDoubleOn)
	writeLine(&buf, center(t.Merchant, w/2))
	buf.Write(escDoubleOff)
	if t.Slogan != "" {
		writeLine(&buf, center(t.Slogan, w))
	}
	writeLine(&buf, strings.Repeat("=", w))

	buf.Write(escAlignLeft)
	buf.Write(escBoldOn)
	writeLine(&buf, twoCol("RECIBO", t.ReceiptNumber, w))
	buf.Write(escBoldOff)
	if t.Reprint {
		buf.Write(escAlignCenter)
		writeLine(&buf, center("* REIMPRESION *", w))
		buf.Write(escAlignLeft)
	}
	writeLine(&buf, twoCol("FECHA", t.PaidAt.Format("02/01/2006 15:04"), w))
	writeLine(&buf, strings.Repeat("-", w))

	writeLine(&buf, clip("CLIENTE: "+t.ClientName, w))
	if t.ClientPhone != "" {
		writeLine(&buf, clip("TEL: "+t.ClientPhone, w))
	}
	if t.ClientAddress != "" {
		writeLine(&buf, clip("DIR: "+t.ClientAddress, w))
	}
	writeLine(&buf, clip("DIA DE PAGO: "+paymentDayLabel(t.PaymentDay), w))
	writeLine(&buf, strings.Repeat("-", w))

	writeLine(&buf, twoCol("TIPO", kindLabel(t.Kind), w))
	writeLine(&buf, twoCol("METODO", methodLabel(t.Method), w))
	if t.Concept != "" {
		writeLine(&buf, clip("CONCEPTO: "+t.Concept, w))
	}
	writeLine(&buf, strings.Repeat("-", w))

	if !t.Reprint {
		writeLine(&buf, moneyLine("SALDO ANTERIOR", t.PreviousBalance, w))
	}
	writeLine(&buf, moneyLine("RECIBIDO", t.AmountReceived, w))
	if t.Moratory.Sign() > 0 {
		writeLine(&buf, moneyLine("  MORATORIOS", t.Moratory, w))
	}
	buf.Write(escBoldOn)
	writeLine(&buf, moneyLine("SALDO NUEVO", t.NewBalance, w))
	buf.Write(escBoldOff)

	if t.Settled {
		buf.Write(escAlignCenter)
		buf.Write(escBoldOn)
		writeLine(&buf, center("** CLIENTE AL CORRIENTE **", w))
		buf.Write(escBoldOff)
		buf.Write(escAlignLeft)
	}

	writeLine(&buf, strings.Repeat("=", w))
	writeLine(&buf, clip("COBRADOR: "+t.CollectorName, w))
	buf.Write(escAlignCenter)
	writeLine(&buf, center("GRACIAS POR SU PAGO", w))

	buf.Write(escFeed)
	buf.Write(escCut)
	return buf.Bytes()
}

func writeLine(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte('\n')
}

// FormatCurrency renders a money amount with two fixed decimals and
// thousands separators: 1234.5 becomes "$1,234.50".
func FormatCurrency(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

// moneyLine lays out a label and a right-aligned currency value on one
// line of exactly width characters.
func moneyLine(label string, d decimal.Decimal, width int) string {
	return twoCol(label, FormatCurrency(d), width)
}

// twoCol pads label and value apart so the result is exactly width
// columns, truncating the label when both cannot fit. Widths are
// counted in runes, not bytes: accented names ("María") occupy one
// printer column per rune.
func twoCol(label, value string, width int) string {
	space := width - utf8.RuneCountInString(value)
	if space < 1 {
		return clip(value, width)
	}
	label = clip(label, space-1)
	return label + strings.Repeat(" ", space-utf8.RuneCountInString(label)) + value
}

func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return clip(s, width)
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s
}

// clip truncates to width columns on a rune boundary, never emitting a
// partial UTF-8 sequence to the printer.
func clip(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width])
}

func kindLabel(k models.PaymentKind) string {
	switch k {
	case models.PaymentRegular:
		return "PAGO"
	case models.PaymentPartial:
		return "ABONO"
	case models.PaymentSettlement:
		return "LIQUIDACION"
	case models.PaymentMoratory:
		return "MORATORIOS"
	}
	return strings.ToUpper(string(k))
}

func methodLabel(m models.PaymentMethod) string {
	switch m {
	case models.MethodCash:
		return "EFECTIVO"
	case models.MethodTransfer:
		return "TRANSFERENCIA"
	case models.MethodCheck:
		return "CHEQUE"
	}
	return strings.ToUpper(string(m))
}

func paymentDayLabel(d models.PaymentDay) string {
	switch d {
	case models.PaymentDayMonday:
		return "LUNES"
	case models.PaymentDayTuesday:
		return "MARTES"
	case models.PaymentDayWednesday:
		return "MIERCOLES"
	case models.PaymentDayThursday:
		return "JUEVES"
	case models.PaymentDayFriday:
		return "VIERNES"
	case models.PaymentDaySaturday:
		return "SABADO"
	case models.PaymentDaySunday:
		return "DOMINGO"
	}
	return strings.ToUpper(string(d))
}

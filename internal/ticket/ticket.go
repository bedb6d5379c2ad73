// Package ticket renders the scannable ticket of a booking.  The QR code
// carries plain text, one field per line, so a door scanner needs no
// schema to read it.
package ticket

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ImageSize is the edge length of the rendered PNG in pixels.
const ImageSize = 256

const (
	showtimeLayout = "15:04 02/01/2006"
	bookedLayout   = "02/01/2006 15:04"
)

// Payload builds the newline-joined ticket text.  Times are shown in loc;
// a nil loc means UTC.
func Payload(d model.ConfirmationDetails, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	lines := []string{
		"Booking ID: " + d.BookingID,
		"Movie: " + d.MovieTitle,
		"Showtime: " + d.StartsAt.In(loc).Format(showtimeLayout),
		"Room: " + room(d),
		"Seats: " + strings.Join(d.Seats, ", "),
		"Total: " + FormatAmount(d.TotalPrice),
		"Booked at: " + d.BookedAt.In(loc).Format(bookedLayout),
	}
	return strings.Join(lines, "\n")
}

// QR encodes the ticket payload as a PNG image.
func QR(d model.ConfirmationDetails, loc *time.Location) (string, []byte, error) {
	payload := Payload(d, loc)
	png, err := qrcode.Encode(payload, qrcode.Medium, ImageSize)
	if err != nil {
		return "", nil, fmt.Errorf("ticket: encode qr: %w", err)
	}
	return payload, png, nil
}

// FormatAmount renders a whole-unit amount with dot thousands
// separators, e.g. 180000 -> "180.000".
func FormatAmount(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func room(d model.ConfirmationDetails) string {
	if d.Theater == "" {
		return d.Room
	}
	return d.Theater + " - " + d.Room
}

// Package gateway speaks the redirect contract of the payment gateway.
// The booking id is sent as the transaction reference; the gateway sends
// the user back to the return URL with a response code, the reference and,
// when a secret is shared, an HMAC-SHA512 signature over the sorted query.
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Response codes.
const (
	CodeSuccess   = "00"
	CodeCancelled = "24"
)

const (
	paramCode      = "vnp_ResponseCode"
	paramRef       = "vnp_TxnRef"
	paramHash      = "vnp_SecureHash"
	paramHashType  = "vnp_SecureHashType"
	timestampStyle = "20060102150405"
)

// ErrBadSignature is returned when a signed return does not verify.
var ErrBadSignature = errors.New("gateway: invalid return signature")

// Config describes the merchant account.
type Config struct {
	PayURL     string
	ReturnURL  string
	MerchantID string
	Secret     string
	Location   *time.Location
}

// Gateway builds payment redirects and parses returns.
type Gateway struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Gateway {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Gateway{cfg: cfg, now: time.Now}
}

// Return is the parsed gateway redirect.  Present is false when the
// request carries no response code, i.e. the user has not come back from
// a payment attempt.
type Return struct {
	Code    string
	Ref     string
	Present bool
}

// Success reports whether the gateway accepted the payment.
func (r Return) Success() bool { return r.Code == CodeSuccess }

// PaymentURL returns the redirect for b.  Amounts are sent in hundredths
// of the whole unit.
func (g *Gateway) PaymentURL(b model.Booking, clientIP string) (string, error) {
	if g.cfg.PayURL == "" {
		return "", errors.New("gateway: pay url not configured")
	}
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}
	q := url.Values{}
	q.Set("vnp_Version", "2.1.0")
	q.Set("vnp_Command", "pay")
	q.Set("vnp_TmnCode", g.cfg.MerchantID)
	q.Set("vnp_Amount", strconv.FormatInt(b.TotalPrice*100, 10))
	q.Set("vnp_CurrCode", "VND")
	q.Set(paramRef, b.ID)
	q.Set("vnp_OrderInfo", fmt.Sprintf("Booking %s", b.ID))
	q.Set("vnp_OrderType", "other")
	q.Set("vnp_Locale", "vn")
	q.Set("vnp_ReturnUrl", g.cfg.ReturnURL)
	q.Set("vnp_IpAddr", clientIP)
	q.Set("vnp_CreateDate", g.now().In(g.cfg.Location).Format(timestampStyle))

	query := canonical(q)
	if g.cfg.Secret != "" {
		query += "&" + paramHash + "=" + sign(g.cfg.Secret, query)
	}
	sep := "?"
	if strings.Contains(g.cfg.PayURL, "?") {
		sep = "&"
	}
	return g.cfg.PayURL + sep + query, nil
}

// ParseReturn reads the redirect query.  When a secret is configured the
// signature must be present and valid.
func (g *Gateway) ParseReturn(q url.Values) (Return, error) {
	code := strings.TrimSpace(q.Get(paramCode))
	if code == "" {
		return Return{}, nil
	}
	ref := strings.TrimSpace(q.Get(paramRef))
	if ref == "" {
		return Return{}, fmt.Errorf("gateway: missing %s", paramRef)
	}
	if g.cfg.Secret != "" {
		got := q.Get(paramHash)
		signed := url.Values{}
		for k, v := range q {
			if k == paramHash || k == paramHashType || !strings.HasPrefix(k, "vnp_") {
				continue
			}
			signed[k] = v
		}
		want := sign(g.cfg.Secret, canonical(signed))
		if got == "" || !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
			return Return{}, ErrBadSignature
		}
	}
	return Return{Code: code, Ref: ref, Present: true}, nil
}

// canonical encodes q with keys sorted, the form the signature covers.
func canonical(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(q.Get(k)))
	}
	return strings.Join(parts, "&")
}

func sign(secret, data string) string {
	m := hmac.New(sha512.New, []byte(secret))
	m.Write([]byte(data))
	return hex.EncodeToString(m.Sum(nil))
}

package paygate

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/yenharbor/payment-core/internal/domain"
)

// PaymentURLRequest describes one redirect-payment attempt. MerchTxnRef must
// be unique per attempt; the gateway rejects reuse.
type PaymentURLRequest struct {
	// Amount is in whole currency units; the wire format multiplies by 100.
	Amount      int64
	MerchTxnRef string
	OrderInfo   string
	ReturnURL   string
	TicketNo    string
	Locale      string
	CallbackURL string

	CustomerPhone string
	CustomerEmail string
	CustomerID    string

	// CardList restricts the payment methods offered by the gateway
	// ("INTERNATIONAL", "DOMESTIC", ...). Empty means no filter.
	CardList string
}

// BuildPaymentURL assembles, signs and serializes the redirect URL for one
// payment attempt. Amount and MerchTxnRef violations are caller contract
// errors, reported before anything is signed.
func (c *Client) BuildPaymentURL(req PaymentURLRequest) (string, error) {
	if req.Amount <= 0 {
		return "", domain.NewInvalidAmountError(req.Amount)
	}
	if req.MerchTxnRef == "" {
		return "", domain.NewInvalidMerchantRefError()
	}

	locale := req.Locale
	if locale == "" {
		locale = c.cfg.Locale
	}

	params := map[string]string{
		"vpc_Version":     c.cfg.Version,
		"vpc_Currency":    c.cfg.Currency,
		"vpc_Command":     "pay",
		"vpc_AccessCode":  c.cfg.AccessCode,
		"vpc_Merchant":    c.cfg.Merchant,
		"vpc_Locale":      locale,
		"vpc_ReturnURL":   req.ReturnURL,
		"vpc_MerchTxnRef": req.MerchTxnRef,
		"vpc_OrderInfo":   req.OrderInfo,
		"vpc_Amount":      strconv.FormatInt(req.Amount*100, 10),
		"vpc_TicketNo":    req.TicketNo,
	}

	if req.CallbackURL != "" {
		params["vpc_CallbackURL"] = req.CallbackURL
	}
	if req.CustomerPhone != "" {
		params["vpc_Customer_Phone"] = req.CustomerPhone
	}
	if req.CustomerEmail != "" {
		params["vpc_Customer_Email"] = req.CustomerEmail
	}
	if req.CustomerID != "" {
		params["vpc_Customer_Id"] = req.CustomerID
	}
	if req.CardList != "" {
		params["vpc_CardList"] = req.CardList
	}

	signature, err := Sign(params, c.cfg.SecretHex)
	if err != nil {
		return "", err
	}

	return c.cfg.PayURL + "?" + encodeSigned(params, signature), nil
}

// encodeSigned serializes params in canonical key order with the signature
// appended last, the order the gateway documents.
func encodeSigned(params map[string]string, signature string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if params[k] == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	b.WriteByte('&')
	b.WriteString(FieldSecureHash)
	b.WriteByte('=')
	b.WriteString(signature)
	return b.String()
}

package paygate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yenharbor/payment-core/internal/config"
)

// ErrMalformedResponse marks a status-query body that could not be decoded.
// Unlike a network error it is not worth retrying.
var ErrMalformedResponse = errors.New("malformed status query response")

// Well-known response fields of a queryDR result.
const (
	FieldDRExists     = "vpc_DRExists"
	FieldResponseCode = "vpc_TxnResponseCode"
	FieldMessage      = "vpc_Message"
	FieldAmount       = "vpc_Amount"
	FieldTxnNo        = "vpc_TransactionNo"
)

// Client talks to the redirect payment gateway: it builds signed payment
// URLs and performs status queries for attempts whose outcome was never
// pushed back to us.
type Client struct {
	cfg        config.PayGateConfig
	httpClient *http.Client
}

func NewClient(cfg config.PayGateConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// QueryStatus asks the gateway for the outcome of one merchant transaction
// reference. The request is signed like an outbound payment; the decoded
// response carries its own signature which callers should check with
// VerifyResponse before trusting the result. No retries here; retry policy
// belongs to the caller.
func (c *Client) QueryStatus(ctx context.Context, merchTxnRef string) (map[string]string, error) {
	params := map[string]string{
		"vpc_Version":     c.cfg.Version,
		"vpc_Command":     "queryDR",
		"vpc_AccessCode":  c.cfg.AccessCode,
		"vpc_Merchant":    c.cfg.Merchant,
		"vpc_MerchTxnRef": merchTxnRef,
		"vpc_User":        c.cfg.User,
		"vpc_Password":    c.cfg.Password,
	}

	signature, err := Sign(params, c.cfg.SecretHex)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	for k, v := range params {
		if v != "" {
			form.Set(k, v)
		}
	}
	form.Set(FieldSecureHash, signature)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.QueryURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	values, err := url.ParseQuery(string(body))
	if err != nil || len(values) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedResponse, string(body))
	}

	return FlattenQuery(values), nil
}

// VerifyResponse checks a status-query response body against its own
// signature.
func (c *Client) VerifyResponse(params map[string]string) bool {
	return Verify(params, c.cfg.SecretHex)
}

// RecordExists reports whether the gateway found a transaction for the
// queried reference.
func RecordExists(params map[string]string) bool {
	return strings.EqualFold(params[FieldDRExists], "Y")
}

// Approved reports whether a status-query result represents a settled
// payment. Response code "0" is the gateway's only success value.
func Approved(params map[string]string) bool {
	return RecordExists(params) && params[FieldResponseCode] == "0"
}

package zarinpal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"shop-checkout/internal/config"
	"shop-checkout/internal/domain"
)

const (
	productionBaseURL = "https://payment.zarinpal.com/"
	sandboxBaseURL    = "https://sandbox.zarinpal.com/"

	// Gateway result codes. 100 is a verified payment, 101 an
	// already-verified one; both count as success.
	codeOK              = 100
	codeAlreadyVerified = 101
)

// Client is a stateless adapter over the gateway's HTTP/JSON API. It
// holds no business state; idempotency lives in the reconciliation
// layer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	merchantID string
	callback   string
	logger     *log.Logger
}

// Authorization is the result of a successful payment initiation.
type Authorization struct {
	Authority   string
	RedirectURL string
}

// Verification is the gateway's business-level verdict on an authority
// token. OK false means the gateway rejected the payment; transport
// failures are reported as errors instead.
type Verification struct {
	RefID string
	OK    bool
}

func NewClient(cfg config.GatewayConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	baseURL := productionBaseURL
	if cfg.Sandbox {
		baseURL = sandboxBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		merchantID: cfg.MerchantID,
		callback:   cfg.CallbackURL,
		logger:     logger,
	}
}

type initiateRequest struct {
	MerchantID  string            `json:"merchant_id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata"`
}

type gatewayResponse struct {
	Data struct {
		Code int `json:"code"`
		Data struct {
			Authority string `json:"authority"`
		} `json:"data"`
		RefID json.Number `json:"ref_id"`
	} `json:"data"`
}

// RequestAuthorization asks the gateway to open an authorization for
// amount and returns the authority token plus the URL the customer must
// be redirected to. A business refusal maps to
// domain.ErrPaymentInitiation, a transport failure to
// domain.ErrGatewayUnavailable.
func (c *Client) RequestAuthorization(ctx context.Context, amount int64, description, orderRef string) (*Authorization, error) {
	body := initiateRequest{
		MerchantID:  c.merchantID,
		Amount:      amount,
		Currency:    "IRR",
		Description: description,
		CallbackURL: c.callback,
		Metadata:    map[string]string{"order_id": orderRef},
	}

	var resp gatewayResponse
	status, err := c.post(ctx, "pg/rest/WebGate/Initiate.json", body, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if status != http.StatusOK {
		c.logger.Printf("zarinpal: initiate order_ref=%s status=%d", orderRef, status)
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrGatewayUnavailable, status)
	}
	if resp.Data.Code != codeOK || resp.Data.Data.Authority == "" {
		c.logger.Printf("zarinpal: initiate order_ref=%s rejected code=%d", orderRef, resp.Data.Code)
		return nil, domain.ErrPaymentInitiation
	}

	return &Authorization{
		Authority:   resp.Data.Data.Authority,
		RedirectURL: c.baseURL + "pg/StartPay/" + resp.Data.Data.Authority,
	}, nil
}

type verifyRequest struct {
	MerchantID string `json:"merchant_id"`
	Authority  string `json:"authority"`
	Amount     int64  `json:"amount"`
}

// VerifyAuthorization asks the gateway for the final verdict on an
// authority token. OK false is a business rejection; transport failures
// and non-200 responses return domain.ErrGatewayUnavailable so the
// caller can retry without re-deriving business state.
func (c *Client) VerifyAuthorization(ctx context.Context, authority string, amount int64) (*Verification, error) {
	body := verifyRequest{
		MerchantID: c.merchantID,
		Authority:  authority,
		Amount:     amount,
	}

	var resp gatewayResponse
	status, err := c.post(ctx, "pg/rest/WebGate/Verify.json", body, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if status != http.StatusOK {
		c.logger.Printf("zarinpal: verify status=%d", status)
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrGatewayUnavailable, status)
	}

	switch resp.Data.Code {
	case codeOK, codeAlreadyVerified:
		return &Verification{RefID: resp.Data.RefID.String(), OK: true}, nil
	default:
		c.logger.Printf("zarinpal: verify rejected code=%d", resp.Data.Code)
		return &Verification{OK: false}, nil
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

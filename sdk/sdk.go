package sdk

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/inconshreveable/log15"
	payrail "github.com/payrail-labs/payrail"
	"github.com/payrail-labs/payrail/schema"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var log = log15.New("module", "payrail/sdk")

// Agent is the payer side: one signing identity plus one spend controller.
// A single Agent is safe for concurrent use; the controller serializes
// limit accounting internally.
type Agent struct {
	Cli *Client

	prvKey  *ecdsa.PrivateKey
	address string
	spend   *payrail.SpendController
}

// FetchResult reports one FetchWithPayment round trip. Paid is false when
// the resource never demanded payment.
type FetchResult struct {
	StatusCode   int    `json:"statusCode"`
	Paid         bool   `json:"paid"`
	Amount       string `json:"amount"`
	Token        string `json:"token"`
	Confirmation string `json:"confirmation"`
	Data         []byte `json:"data"`
}

func NewAgent(prvHex string, limits payrail.SpendLimits, domains payrail.DomainPolicy, policy payrail.ApprovalPolicy) (*Agent, error) {
	prvKey, err := crypto.HexToECDSA(strings.TrimPrefix(prvHex, "0x"))
	if err != nil {
		return nil, err
	}
	return &Agent{
		Cli:     NewClient(),
		prvKey:  prvKey,
		address: crypto.PubkeyToAddress(prvKey.PublicKey).Hex(),
		spend:   payrail.NewSpendController(limits, domains, policy),
	}, nil
}

func (a *Agent) Address() string {
	return a.address
}

func (a *Agent) SpendStatus() payrail.SpendStatus {
	return a.spend.Status()
}

// FetchWithPayment requests a resource and settles a 402 demand if one comes
// back: decode the requirement, run it through the spend controller, sign an
// authorization for the exact demanded amount and retry once with X-Payment.
// Denials from the controller surface as errors without any retry.
func (a *Agent) FetchWithPayment(ctx context.Context, method, rawurl string) (*FetchResult, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}

	resp, err := a.Cli.do(ctx, method, rawurl, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 402 {
		return &FetchResult{
			StatusCode: resp.StatusCode,
			Data:       resp.Body,
		}, nil
	}

	req, err := payrail.RequirementFromResponse(resp.Header.Get(schema.HeaderPaymentRequired), resp.Body)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("requirement amount %q: %w", req.Amount, err)
	}

	if err = a.spend.Evaluate(ctx, u.Hostname(), amount); err != nil {
		log.Warn("payment declined by spend controller", "domain", u.Hostname(), "amount", req.Amount, "err", err)
		return nil, err
	}

	header, err := a.authorize(req)
	if err != nil {
		return nil, err
	}

	resp, err = a.Cli.do(ctx, method, rawurl, map[string]string{schema.HeaderPayment: header})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := gjson.GetBytes(resp.Body, "error").String()
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("payment not accepted: %s", reason)
	}

	confirmation := resp.Header.Get(schema.HeaderPaymentConfirmation)
	if confirmation == "" {
		confirmation = resp.Header.Get(schema.HeaderPaymentReceipt)
	}
	log.Info("paid resource fetched", "url", rawurl, "amount", req.Amount, "confirmation", confirmation)
	return &FetchResult{
		StatusCode:   resp.StatusCode,
		Paid:         true,
		Amount:       req.Amount,
		Token:        req.Token,
		Confirmation: confirmation,
		Data:         resp.Body,
	}, nil
}

// authorize builds and signs an authorization matching the requirement
// field for field. Value is the minor-unit integer amount.
func (a *Agent) authorize(req schema.PaymentRequirement) (string, error) {
	minor, err := req.MinorAmount()
	if err != nil {
		return "", err
	}
	auth := schema.PaymentAuthorization{
		From:        a.address,
		To:          req.Recipient,
		Value:       minor.String(),
		Token:       req.Token,
		ChainId:     req.ChainId,
		Nonce:       req.Nonce,
		ValidBefore: req.ExpiresAt,
	}
	if err = auth.Sign(req.TokenName(), req.TokenVersion(), a.prvKey); err != nil {
		return "", err
	}
	return payrail.EncodeAuthorization(auth)
}

package payrail

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/payrail-labs/payrail/cache"
	"github.com/payrail-labs/payrail/config"
	cfgSchema "github.com/payrail-labs/payrail/config/schema"
	"github.com/payrail-labs/payrail/schema"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func newTestService(t *testing.T) *Payrail {
	gin.SetMode(gin.TestMode)
	reqCache, err := cache.NewRequirementCache(time.Minute)
	assert.NoError(t, err)
	replay := NewReplayStore(time.Hour, nil)

	s := &Payrail{
		engine: gin.New(),
		cfg: config.NewStatic(map[string]cfgSchema.RoutePrice{
			"/r/weather": {Amount: "0.10", Token: "USDC", Scheme: schema.SchemeExact},
		}),
		reqCache:  reqCache,
		replay:    replay,
		issuer:    NewIssuer(testRecipient, 8453, time.Minute, reqCache),
		verifier:  NewVerifier(replay, nil, nil),
		recipient: testRecipient,
		chainId:   8453,
		tokens:    map[string]schema.TokenMeta{"USDC": testToken},
	}
	s.engine.GET("/r/*resource", s.PaywallMiddleware(), s.serveResource)
	return s
}

func doRequest(s *Payrail, payment string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r, _ := http.NewRequest("GET", "/r/weather", nil)
	if payment != "" {
		r.Header.Set(schema.HeaderPayment, payment)
	}
	s.engine.ServeHTTP(w, r)
	return w
}

func TestPaywallFullLoop(t *testing.T) {
	s := newTestService(t)
	prv, err := crypto.GenerateKey()
	assert.NoError(t, err)

	// first request: demand
	w := doRequest(s, "")
	assert.Equal(t, 402, w.Code)
	demand := w.Header().Get(schema.HeaderPaymentRequired)
	assert.NotEmpty(t, demand)
	req, err := DecodeRequirement([]byte(demand))
	assert.NoError(t, err)
	assert.Equal(t, "0.10", req.Amount)
	assert.Equal(t, testRecipient, req.Recipient)

	// pay and retry
	auth := signedAuth(t, prv, req, "100000")
	header, err := EncodeAuthorization(auth)
	assert.NoError(t, err)
	w = doRequest(s, header)
	assert.Equal(t, 200, w.Code)
	confirmation := w.Header().Get(schema.HeaderPaymentConfirmation)
	assert.NotEmpty(t, confirmation)
	assert.Equal(t, "100000", w.Header().Get(schema.HeaderPaymentAmount))
	assert.Equal(t, confirmation, gjson.Get(w.Body.String(), "confirmation").String())

	// replaying the same header re-demands with a fresh nonce
	w = doRequest(s, header)
	assert.Equal(t, 402, w.Code)
	assert.Equal(t, ErrNonceReplayed.Error(), gjson.Get(w.Body.String(), "error").String())
	fresh, err := DecodeRequirement([]byte(w.Header().Get(schema.HeaderPaymentRequired)))
	assert.NoError(t, err)
	assert.NotEqual(t, req.Nonce, fresh.Nonce)
}

func TestPaywallMalformedHeader(t *testing.T) {
	s := newTestService(t)
	w := doRequest(s, "not json")
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, ErrMalformedAuthorization.Error(), gjson.Get(w.Body.String(), "error").String())
}

func TestPaywallUnknownNonce(t *testing.T) {
	s := newTestService(t)
	prv, err := crypto.GenerateKey()
	assert.NoError(t, err)

	// a requirement the service never issued
	issuer := NewIssuer(testRecipient, 8453, time.Minute, nil)
	req, err := issuer.Issue("0.10", testToken, schema.SchemeExact)
	assert.NoError(t, err)
	header, err := EncodeAuthorization(signedAuth(t, prv, req, "100000"))
	assert.NoError(t, err)

	w := doRequest(s, header)
	assert.Equal(t, 402, w.Code)
	assert.Equal(t, ErrRequirementUnknown.Error(), gjson.Get(w.Body.String(), "error").String())
}

func TestPaywallUnpricedRoute(t *testing.T) {
	s := newTestService(t)
	w := httptest.NewRecorder()
	r, _ := http.NewRequest("GET", "/r/open-data", nil)
	s.engine.ServeHTTP(w, r)
	assert.Equal(t, 200, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "paid").Bool())
}

func TestLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LimiterMiddleware(2, "M", nil))
	r.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, 200, w.Code)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 429, w.Code)
}

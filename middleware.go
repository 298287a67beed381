package payrail

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/payrail-labs/payrail/schema"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

var ERR_TOO_MANY_REQUESTS = errors.New("err_limit_exceeded")

// receiptContextKey exposes the verified receipt to downstream handlers.
const receiptContextKey = "payrail_receipt"

// LimiterMiddleware period: "S"<Second>,"M"<Minute>,"H"<Hour>,"D"<Day>; limit: limit frequency
func LimiterMiddleware(limit int, period string, ipRateWhitelist *map[string]struct{}) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(fmt.Sprintf("%d-%s", limit, period))
	if err != nil {
		panic(err)
	}
	store := memory.NewStore()
	middleware := mgin.NewMiddleware(limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": ERR_TOO_MANY_REQUESTS.Error(),
			})
		}),
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return c.Request.Header.Get("origin") + "," + c.ClientIP()
		}),
		mgin.WithExcludedKey(func(originAndIp string) bool { // origin + "," + ip
			if ipRateWhitelist == nil {
				return false
			}
			mmap := *ipRateWhitelist
			ss := strings.Split(originAndIp, ",")
			for _, s := range ss {
				if _, ok := mmap[s]; ok {
					return true
				}
			}
			return false
		}))

	return middleware
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Payment")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, HEAD")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Payment-Required, X-Payment-Receipt, X-Payment-Confirmation, X-Payment-Amount, X-Payment-Timestamp")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// PaywallMiddleware gates priced routes behind the 402 flow: no X-Payment
// header gets a fresh requirement; a present header is decoded, re-bound to
// its issued requirement and verified before the request may proceed.
// Unpriced routes pass through untouched.
func (s *Payrail) PaywallMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.URL.Path
		rp, priced := s.cfg.GetRoutePrice(route)
		if !priced {
			c.Next()
			return
		}
		token, ok := s.tokens[rp.Token]
		if !ok {
			c.Abort()
			internalErrorResponse(c, "unsupported token: "+rp.Token)
			return
		}

		header := c.GetHeader(schema.HeaderPayment)
		if header == "" {
			s.demandPayment(c, rp.Amount, token, rp.Scheme, nil)
			return
		}

		auth, err := DecodeAuthorization(header)
		if err != nil {
			c.Abort()
			errorResponse(c, ErrMalformedAuthorization.Error())
			return
		}

		req, err := s.issuer.Lookup(auth.Nonce)
		if err != nil {
			// unknown or lapsed nonce; fail closed and re-demand
			s.demandPayment(c, rp.Amount, token, rp.Scheme, ErrRequirementUnknown)
			return
		}

		receipt, err := s.verifier.Verify(auth, req)
		if err != nil {
			s.demandPayment(c, rp.Amount, token, rp.Scheme, err)
			return
		}

		writeReceiptHeaders(c, receipt)
		c.Set(receiptContextKey, receipt)
		c.Next()
	}
}

func (s *Payrail) demandPayment(c *gin.Context, amount string, token schema.TokenMeta, scheme string, reason error) {
	c.Abort()
	req, err := s.issuer.Issue(amount, token, scheme)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	writeRequirement(c, req, reason)
}

// ReceiptFromContext returns the receipt attached by the paywall, if any.
func ReceiptFromContext(c *gin.Context) (schema.Receipt, bool) {
	v, ok := c.Get(receiptContextKey)
	if !ok {
		return schema.Receipt{}, false
	}
	receipt, ok := v.(schema.Receipt)
	return receipt, ok
}

package payrail

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payrail-labs/payrail/schema"
)

func (s *Payrail) runAPI(port string) {
	r := s.engine
	r.Use(CORSMiddleware())
	r.Use(LimiterMiddleware(600, "M", nil))
	v1 := r.Group("/")
	{
		v1.GET("/info", s.getInfo)
		v1.GET("/receipt/:confirmation", s.getReceipt)
		v1.GET("/analytics", s.getAnalytics)

		// facilitator-style programmatic verification
		v1.POST("/verify", s.postVerify)

		// priced resources
		paid := r.Group("/", s.PaywallMiddleware())
		{
			paid.GET("/r/*resource", s.serveResource)
		}
	}

	if err := r.Run(port); err != nil {
		panic(err)
	}
}

func (s *Payrail) getInfo(c *gin.Context) {
	tokens := make([]schema.TokenMeta, 0, len(s.tokens))
	for _, tk := range s.tokens {
		tokens = append(tokens, tk)
	}
	c.JSON(http.StatusOK, gin.H{
		"recipient": s.recipient,
		"chainId":   s.chainId,
		"tokens":    tokens,
		"routes":    s.cfg.Routes(),
	})
}

func (s *Payrail) getReceipt(c *gin.Context) {
	confirmation := c.Param("confirmation")
	if len(confirmation) == 0 {
		errorResponse(c, "invalid_confirmation")
		return
	}
	if s.wdb == nil {
		notFoundResponse(c)
		return
	}
	record, err := s.wdb.GetPayment(confirmation)
	if err != nil {
		notFoundResponse(c)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Payrail) getAnalytics(c *gin.Context) {
	if s.wdb == nil {
		c.JSON(http.StatusOK, gin.H{"totalPayments": 0, "topPayers": []schema.PayerStat{}})
		return
	}
	total, err := s.wdb.CountPayments()
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	topPayers, err := s.wdb.GetTopPayers(10)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalPayments": total,
		"topPayers":     topPayers,
	})
}

type verifyReq struct {
	Authorization schema.PaymentAuthorization `json:"authorization"`
	Requirement   *schema.PaymentRequirement  `json:"requirement"`
}

// postVerify verifies an authorization outside the paywall flow. The
// requirement may be inlined; otherwise it is re-bound via the nonce. A
// success here consumes the nonce exactly like the paywall does.
func (s *Payrail) postVerify(c *gin.Context) {
	params := verifyReq{}
	if err := c.ShouldBindJSON(&params); err != nil {
		errorResponse(c, ErrMalformedAuthorization.Error())
		return
	}

	var req schema.PaymentRequirement
	if params.Requirement != nil {
		req = *params.Requirement
	} else {
		found, err := s.issuer.Lookup(params.Authorization.Nonce)
		if err != nil {
			errorResponse(c, ErrRequirementUnknown.Error())
			return
		}
		req = found
	}

	receipt, err := s.verifier.Verify(params.Authorization, req)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "reason": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "receipt": receipt})
}

func (s *Payrail) serveResource(c *gin.Context) {
	receipt, paid := ReceiptFromContext(c)
	c.JSON(http.StatusOK, gin.H{
		"resource":     c.Param("resource"),
		"paid":         paid,
		"confirmation": receipt.Confirmation,
	})
}

func errorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err,
	})
}

func notFoundResponse(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": schema.ErrNotFound.Error(),
	})
}

func internalErrorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": err,
	})
}

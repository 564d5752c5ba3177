package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stratum-ops/opsdeck/src/data"
)

type Auth struct {
	rdb         *redis.Client
	jwtSecret   []byte
	operatorKey []byte
}

func NewAuth(rdb *redis.Client, secret, operatorKey []byte) Auth {
	return Auth{rdb: rdb, jwtSecret: secret, operatorKey: operatorKey}
}

func (a Auth) Challenge(c *gin.Context) {
	var req struct {
		Operator string `json:"operator" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	nonce := uuid.NewString()
	if err := data.SetNonce(c, a.rdb, req.Operator, nonce); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "challenge store failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

func (a Auth) Verify(c *gin.Context) {
	var req struct {
		Operator string `json:"operator" binding:"required"`
		Proof    string `json:"proof"    binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	nonce, err := data.GetAndDelNonce(c, a.rdb, req.Operator)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "challenge expired"})
		return
	}
	if err := verifyProof(a.operatorKey, nonce, req.Proof); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad proof"})
		return
	}
	token, err := issueJWT(req.Operator, a.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

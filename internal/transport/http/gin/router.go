package httpgin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/seat-market/internal/contract"
	"github.com/kirinyoku/seat-market/internal/domain"
	redisrepo "github.com/kirinyoku/seat-market/internal/repository/redis"
	"github.com/kirinyoku/seat-market/internal/service/contracts"
)

const idemLockTTL = 60 * time.Second

// Idempotency is the store behind the Idempotency-Key header.
type Idempotency interface {
	Begin(ctx context.Context, key string, lockTTL time.Duration) (redisrepo.IdemState, string, error)
	Save(ctx context.Context, key string, jsonPayload string) error
	Release(ctx context.Context, key string) error
}

func NewRouter(
	svc *contracts.Service,
	idem Idempotency,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", handleHealthz)

	r.POST("/contracts", handleInstantiate(svc, idem))

	g := r.Group("/contracts/:addr")
	{
		g.GET("", handleGetContract(svc))
		g.POST("/execute", handleExecute(svc, idem))
		g.POST("/query", handleQuery(svc))
		g.POST("/migrate", handleMigrate(svc))
	}

	return r
}

// @Summary  Liveness probe
// @Success  200  {object}  map[string]string
// @Router   /healthz [get]
func handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary  Instantiate contract (idempotent)
// @Param    req  body    InstantiateRequest  true   "payload"
// @Param    Idempotency-Key  header  string  false  "replays the stored response for the same sender and body"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} contracts.Result
// @Failure  400 {object} ErrorResponse
// @Failure  403 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "idem in progress"
// @Router   /contracts [post]
func handleInstantiate(svc *contracts.Service, idem Idempotency) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InstantiateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sender, fp := domain.Addr(req.Sender), fingerprint(req)
		storageKey := func(k string) string { return redisrepo.KeyIdemInstantiate(sender, fp, k) }
		withIdempotency(c, idem, storageKey, http.StatusCreated, func(ctx context.Context) (any, error) {
			return svc.Instantiate(ctx, req.Kind, sender, req.Funds, req.Msg)
		})
	}
}

// @Summary  Get contract
// @Param    addr  path  string  true  "Contract address"
// @Success  200  {object}  ContractResponse
// @Success  304
// @Failure  404  {object}  ErrorResponse
// @Router   /contracts/{addr} [get]
func handleGetContract(svc *contracts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		inst, err := svc.Get(c.Request.Context(), addrParam(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, contractResponse(inst), "private, no-cache", true)
	}
}

// @Summary  Execute message (idempotent)
// @Param    addr  path  string  true  "Contract address"
// @Param    req   body  ExecuteRequest  true  "payload"
// @Param    Idempotency-Key  header  string  false  "replays the stored response for the same sender and body"
// @Header   200 {string} Idempotency-Key "echo"
// @Success  200 {object} contracts.Result
// @Failure  400 {object} ErrorResponse
// @Failure  402 {object} ErrorResponse "insufficient funds"
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "invalid state / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /contracts/{addr}/execute [post]
func handleExecute(svc *contracts.Service, idem Idempotency) gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := addrParam(c)

		var req ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		sender, fp := domain.Addr(req.Sender), fingerprint(req)
		storageKey := func(k string) string { return redisrepo.KeyIdemExecute(addr, sender, fp, k) }
		withIdempotency(c, idem, storageKey, http.StatusOK, func(ctx context.Context) (any, error) {
			return svc.Execute(ctx, addr, sender, req.Funds, req.Msg)
		})
	}
}

// @Summary  Query contract
// @Param    addr  path  string  true  "Contract address"
// @Param    req   body  QueryRequest  true  "payload"
// @Success  200 {object} object "query result"
// @Success  304
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /contracts/{addr}/query [post]
func handleQuery(svc *contracts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		out, err := svc.Query(c.Request.Context(), addrParam(c), req.Msg)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, out, "private, no-cache", false)
	}
}

// @Summary  Migrate contract
// @Param    addr  path  string  true  "Contract address"
// @Param    req   body  MigrateRequest  true  "payload"
// @Success  200 {object} contracts.Result
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "stored version is not older"
// @Router   /contracts/{addr}/migrate [post]
func handleMigrate(svc *contracts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MigrateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := svc.Migrate(c.Request.Context(), addrParam(c), req.Msg)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// withIdempotency runs call at most once per Idempotency-Key and request. A
// repeated key with the same sender and body replays the stored response; a key whose first request is still running
// gets 409. Failed calls release the key.
func withIdempotency(
	c *gin.Context,
	idem Idempotency,
	storageKey func(string) string,
	status int,
	call func(ctx context.Context) (any, error),
) {
	ctx := c.Request.Context()
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))

	var key string
	if idem != nil && idemKey != "" {
		key = storageKey(idemKey)

		state, payload, err := idem.Begin(ctx, key, idemLockTTL)
		if err != nil {
			respondErr(c, err)
			return
		}

		switch state {
		case redisrepo.IdemDone:
			c.Header("Idempotency-Key", idemKey)
			c.Data(status, "application/json; charset=utf-8", []byte(payload))
			return
		case redisrepo.IdemInFlight:
			c.Header("Retry-After", "1")
			c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
			return
		}
	}

	res, err := call(ctx)
	if err != nil {
		if key != "" {
			_ = idem.Release(ctx, key)
		}
		respondErr(c, err)
		return
	}

	if key != "" {
		b, _ := json.Marshal(res)
		_ = idem.Save(ctx, key, string(b))
		c.Header("Idempotency-Key", idemKey)
	}

	c.JSON(status, res)
}

// --- Helpers ---

// fingerprint identifies a decoded request body.
func fingerprint(req any) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

func addrParam(c *gin.Context) domain.Addr {
	return domain.Addr(strings.TrimSpace(c.Param("addr")))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: domain.ErrValidation.Error()})
}

var kindStatus = map[error]int{
	domain.ErrValidation:        http.StatusBadRequest,
	domain.ErrUnauthorized:      http.StatusForbidden,
	domain.ErrNotFound:          http.StatusNotFound,
	domain.ErrAlreadyExists:     http.StatusConflict,
	domain.ErrInvalidState:      http.StatusConflict,
	domain.ErrInsufficientFunds: http.StatusPaymentRequired,
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl contracts.RateLimitedError
	switch {
	case errors.As(err, &rl):
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	case errors.Is(err, contracts.ErrContractNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "contract not found"})
		return
	case errors.Is(err, contracts.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown contract kind"})
		return
	}

	if kind := domain.Kind(err); kind != nil {
		resp := ErrorResponse{Error: err.Error(), Kind: kind.Error()}
		var me *contract.ModuleError
		if errors.As(err, &me) {
			resp.Module = me.Module
		}
		c.JSON(kindStatus[kind], resp)
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

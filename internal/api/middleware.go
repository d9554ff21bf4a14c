package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/metrics"
)

// Headers read by the API.
const (
	HeaderRequestID   = "X-Request-ID"
	HeaderInitData    = "X-Telegram-Init-Data"
	HeaderAdminAPIKey = "X-Admin-Api-Key"
)

// Context keys set by the middleware chain.
const (
	ctxRequestID = "request_id"
	ctxIdentity  = "identity"
	ctxUser      = "user"
)

var (
	errMissingInitData = errors.New("missing init data")
	errInvalidInitData = errors.New("invalid init data")
	errAuthDisabled    = errors.New("init data validation is not configured")
)

// Identity is the Telegram user a request acts for.
type Identity struct {
	Profile    model.Profile
	StartParam string
}

// RequestID tags every request with an id, reusing the caller's when given.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// AccessLog writes one log event per request and observes its latency.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(latency.Seconds())

		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		case route == "/health" || route == "/metrics":
			ev = log.Debug()
		}
		if ident, ok := identityOf(c); ok {
			ev = ev.Int64("telegram_id", ident.Profile.TelegramID)
		}
		ev.
			Str("request_id", requestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// Recovery turns panics into a 500 response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().
			Interface("panic", recovered).
			Str("request_id", requestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic in handler")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// Authenticator resolves the Telegram identity of a request from signed
// Mini App init data. Requests without valid init data are rejected unless
// dev mode supplies a fixed test identity.
type Authenticator struct {
	botToken      string
	ttl           time.Duration
	devMode       bool
	devTelegramID int64
}

// NewAuthenticator creates an Authenticator. ttl of zero disables the
// init data expiry check.
func NewAuthenticator(botToken string, ttl time.Duration, devMode bool, devTelegramID int64) *Authenticator {
	return &Authenticator{botToken: botToken, ttl: ttl, devMode: devMode, devTelegramID: devTelegramID}
}

// Resolve returns the identity carried by raw init data.
func (a *Authenticator) Resolve(raw string) (Identity, error) {
	if raw == "" {
		if a.devMode {
			return Identity{Profile: model.Profile{
				TelegramID: a.devTelegramID,
				Username:   "dev_wolf",
				FirstName:  "Dev",
			}}, nil
		}
		return Identity{}, errMissingInitData
	}
	if a.botToken == "" {
		return Identity{}, errAuthDisabled
	}
	if err := initdata.Validate(raw, a.botToken, a.ttl); err != nil {
		return Identity{}, errInvalidInitData
	}
	parsed, err := initdata.Parse(raw)
	if err != nil || parsed.User.ID <= 0 {
		return Identity{}, errInvalidInitData
	}
	return Identity{
		Profile: model.Profile{
			TelegramID: parsed.User.ID,
			Username:   parsed.User.Username,
			FirstName:  parsed.User.FirstName,
			LastName:   parsed.User.LastName,
			PhotoURL:   parsed.User.PhotoURL,
		},
		StartParam: parsed.StartParam,
	}, nil
}

// Middleware stores the resolved identity on the request or aborts.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderInitData)
		if raw == "" {
			raw = c.Query("init_data")
		}
		ident, err := a.Resolve(raw)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, errAuthDisabled) {
				status = http.StatusInternalServerError
			}
			log.Warn().
				Err(err).
				Str("request_id", requestID(c)).
				Str("path", c.Request.URL.Path).
				Msg("Unauthenticated request")
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Set(ctxIdentity, ident)
		c.Next()
	}
}

func identityOf(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return Identity{}, false
	}
	ident, ok := v.(Identity)
	return ident, ok
}

func userOf(c *gin.Context) *model.User {
	u, _ := c.MustGet(ctxUser).(*model.User)
	return u
}

// AdminKey guards the admin routes with a shared key. An empty key
// disables the admin API.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin api is disabled"})
			return
		}
		given := c.GetHeader(HeaderAdminAPIKey)
		if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			log.Warn().
				Str("request_id", requestID(c)).
				Str("path", c.Request.URL.Path).
				Msg("Rejected admin request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin api key"})
			return
		}
		c.Next()
	}
}

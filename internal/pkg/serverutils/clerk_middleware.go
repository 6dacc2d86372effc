package serverutils

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"madlen-ai-be/internal/config"
	"madlen-ai-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

const authFailedDetail = "Invalid authentication credentials"

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// ClerkAuth verifies Clerk-issued RS256 tokens against the issuer's JWKS
// endpoint. The key set is cached in-process for an hour; Clerk rotates
// keys rarely and a rotation just means one failed request refetches.
type ClerkAuth struct {
	issuer  string
	jwksURL string
	keys    *cache.Cache
	client  *http.Client
	log     logger.ILogger
}

func NewClerkAuth(cfg *config.Config, log logger.ILogger) *ClerkAuth {
	return &ClerkAuth{
		issuer:  cfg.Clerk.Issuer,
		jwksURL: cfg.Clerk.Issuer + "/.well-known/jwks.json",
		keys:    cache.New(time.Hour, 2*time.Hour),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Middleware authenticates the request and stores "user_id" and "email"
// in Locals. Every failure collapses into the same 401 detail so callers
// learn nothing about which check tripped.
func (a *ClerkAuth) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": authFailedDetail})
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, a.keyFunc,
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithIssuer(a.issuer),
		)
		if err != nil || !token.Valid {
			a.log.Warn("auth", "Token verification failed", map[string]interface{}{
				"error": fmt.Sprint(err),
			})
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": authFailedDetail})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": authFailedDetail})
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": authFailedDetail})
		}

		ctx.Locals("user_id", sub)
		if email, ok := claims["email"].(string); ok {
			ctx.Locals("email", email)
		}
		return ctx.Next()
	}
}

func (a *ClerkAuth) keyFunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token has no kid header")
	}

	if key, found := a.keys.Get(kid); found {
		return key.(*rsa.PublicKey), nil
	}

	if err := a.refreshKeys(); err != nil {
		return nil, err
	}

	if key, found := a.keys.Get(kid); found {
		return key.(*rsa.PublicKey), nil
	}
	return nil, fmt.Errorf("no key for kid %s", kid)
}

func (a *ClerkAuth) refreshKeys() error {
	resp, err := a.client.Get(a.jwksURL)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			a.log.Warn("auth", "Skipping malformed JWK", map[string]interface{}{
				"kid":   k.Kid,
				"error": err.Error(),
			})
			continue
		}
		a.keys.Set(k.Kid, pub, cache.DefaultExpiration)
	}
	return nil
}

func rsaKeyFromJWK(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("zero exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

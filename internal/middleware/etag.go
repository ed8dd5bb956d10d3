// Package middleware provides the Fiber middlewares of the dev server.
package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ETagConfig defines the configuration for ETag middleware
type ETagConfig struct {
	// Weak determines if the ETag should be a weak validator (W/"...")
	Weak bool

	// SkipPaths are path prefixes that should not have ETags
	SkipPaths []string
}

// DefaultETagConfig returns the default configuration. Manifests are served
// byte for byte, so the validator is strong.
func DefaultETagConfig() ETagConfig {
	return ETagConfig{
		Weak:      false,
		SkipPaths: []string{"/health", "/metrics"},
	}
}

// ETag creates a middleware that tags GET and HEAD responses with a hash of
// their body and answers matching If-None-Match requests with 304, so a
// polling client only downloads a manifest when a rebuild changed it.
func ETag(config ...ETagConfig) fiber.Handler {
	cfg := DefaultETagConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
			return c.Next()
		}

		path := c.Path()
		for _, skipPath := range cfg.SkipPaths {
			if strings.HasPrefix(path, skipPath) {
				return c.Next()
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Only successful responses carry a validator
		status := c.Response().StatusCode()
		if status < 200 || status >= 300 {
			return nil
		}

		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		etag := generateETag(body, cfg.Weak)
		c.Set(fiber.HeaderETag, etag)

		if ifNoneMatch := c.Get(fiber.HeaderIfNoneMatch); ifNoneMatch != "" && etagMatches(etag, ifNoneMatch) {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}

// generateETag creates an ETag from the first 16 bytes of the body's SHA-256
func generateETag(body []byte, weak bool) string {
	hash := sha256.Sum256(body)
	hashStr := hex.EncodeToString(hash[:16])

	if weak {
		return `W/"` + hashStr + `"`
	}
	return `"` + hashStr + `"`
}

// etagMatches checks if the current ETag matches any in the If-None-Match header
// Handles multiple ETags separated by commas and the * wildcard
func etagMatches(etag, ifNoneMatch string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "*" {
		return true
	}

	normalizedETag := normalizeETag(etag)
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if normalizeETag(candidate) == normalizedETag {
			return true
		}
	}
	return false
}

// normalizeETag removes the weak indicator. RFC 7232 compares If-None-Match
// weakly.
func normalizeETag(etag string) string {
	return strings.TrimPrefix(strings.TrimSpace(etag), "W/")
}

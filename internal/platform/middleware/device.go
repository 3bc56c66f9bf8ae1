package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mssola/useragent"
)

type contextKeyDevice struct{}

// GetDevice retrieves the parsed device summary from the context.
func GetDevice(ctx context.Context) string {
	if d, ok := ctx.Value(contextKeyDevice{}).(string); ok {
		return d
	}
	return ""
}

// WithDevice injects a device summary into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, contextKeyDevice{}, device)
}

// Device parses the User-Agent header into a short display name
// ("Chrome 120 on Linux") recorded on the registration session so support
// staff can tell which device an onboarding attempt came from.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		summary := deviceSummary(r.UserAgent())
		ctx := WithDevice(r.Context(), summary)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deviceSummary(rawUA string) string {
	if rawUA == "" {
		return "unknown device"
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return "unknown device"
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s on %s", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}

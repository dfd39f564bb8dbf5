package password

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passring/passring/internal/logger"
)

func digestParts(pw string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(pw))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	return digest[:5], digest[5:]
}

func TestBreachChecker_FoundInRange(t *testing.T) {
	prefix, suffix := digestParts("hunter2")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/range/"+prefix, r.URL.Path)
		// Two decoys around the real suffix.
		_, _ = w.Write([]byte("0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n" + suffix + ":17\r\nFFFFF00000AAAAA11111BBBBB22222CCCCC:1\n"))
	}))
	defer srv.Close()

	checker := NewBreachChecker(srv.URL, time.Second, logger.Nop())
	assert.True(t, checker.Check(context.Background(), "hunter2"))
}

func TestBreachChecker_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0018A45C4D1DEF81644B54AB7F969B88D65:3\n"))
	}))
	defer srv.Close()

	checker := NewBreachChecker(srv.URL, time.Second, logger.Nop())
	assert.False(t, checker.Check(context.Background(), "kV9$mQ2^xTr7&wPz4!Jd"))
}

// TestBreachChecker_FailsOpen covers the failure modes that must resolve to
// "not breached" rather than blocking the caller.
func TestBreachChecker_FailsOpen(t *testing.T) {
	t.Run("server error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		checker := NewBreachChecker(srv.URL, time.Second, logger.Nop())
		assert.False(t, checker.Check(context.Background(), "hunter2"))
	})

	t.Run("unreachable server", func(t *testing.T) {
		checker := NewBreachChecker("http://127.0.0.1:1", 200*time.Millisecond, logger.Nop())
		assert.False(t, checker.Check(context.Background(), "hunter2"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("irrelevant"))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		checker := NewBreachChecker(srv.URL, time.Second, logger.Nop())
		assert.False(t, checker.Check(ctx, "hunter2"))
	})
}

func TestBreachChecker_OnlyPrefixLeavesTheClient(t *testing.T) {
	var requestedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		_, _ = w.Write([]byte(""))
	}))
	defer srv.Close()

	checker := NewBreachChecker(srv.URL, time.Second, logger.Nop())
	checker.Check(context.Background(), "hunter2")

	prefix, suffix := digestParts("hunter2")
	assert.Equal(t, "/range/"+prefix, requestedPath)
	assert.NotContains(t, requestedPath, suffix)
}

package fetcher_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Houeta/offerhunt/internal/fetcher"
	"github.com/Houeta/offerhunt/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripFunc is a stub for http.RoundTripper.
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newResponse(status int, contentType, body string) *http.Response {
	header := make(http.Header)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// fakeRenderer is a stub for fetcher.Renderer.
type fakeRenderer struct {
	html        string
	err         error
	block       bool
	gotDeadline bool
	calls       int
}

func (f *fakeRenderer) Render(ctx context.Context, _ models.FetchTarget) ([]byte, error) {
	f.calls++
	_, f.gotDeadline = ctx.Deadline()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.html), nil
}

func newExecutor(rt http.RoundTripper, renderer fetcher.Renderer, opts fetcher.Options) *fetcher.Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fetcher.New(logger, &http.Client{Transport: rt}, renderer, opts)
}

func staticTarget(url string) models.FetchTarget {
	return models.FetchTarget{URL: url, Strategy: models.StrategyStatic}
}

func TestFetch_Static(t *testing.T) {
	var gotReq *http.Request
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotReq = req
		return newResponse(http.StatusOK, "text/html; charset=utf-8", "<html>ok</html>"), nil
	})

	exec := newExecutor(rt, nil, fetcher.Options{UserAgent: "test-agent", AcceptLanguage: "es-PY"})

	page, err := exec.Fetch(t.Context(), "Nissei", staticTarget("https://nissei.example/search?q=iphone"))
	require.NoError(t, err)

	assert.Equal(t, "https://nissei.example/search?q=iphone", page.URL)
	assert.Equal(t, "<html>ok</html>", string(page.HTML))
	assert.False(t, page.FetchedAt.IsZero())

	require.NotNil(t, gotReq)
	assert.Equal(t, http.MethodGet, gotReq.Method)
	assert.Equal(t, "test-agent", gotReq.Header.Get("User-Agent"))
	assert.Equal(t, "es-PY", gotReq.Header.Get("Accept-Language"))
}

func TestFetch_StaticFailures(t *testing.T) {
	testCases := []struct {
		name       string
		target     string
		rt         roundTripFunc
		wantStatus int
		wantErr    error
	}{
		{
			name:   "Non 2xx status",
			target: "https://nissei.example/",
			rt: func(*http.Request) (*http.Response, error) {
				return newResponse(http.StatusServiceUnavailable, "", "busy"), nil
			},
			wantStatus: http.StatusServiceUnavailable,
			wantErr:    fetcher.ErrStatus,
		},
		{
			name:   "Transport error",
			target: "https://nissei.example/",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection reset")
			},
		},
		{
			name:    "Invalid url",
			target:  "nissei.example/no-scheme",
			rt:      func(*http.Request) (*http.Response, error) { panic("must not be called") },
			wantErr: fetcher.ErrInvalidURL,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exec := newExecutor(tc.rt, nil, fetcher.Options{})

			page, err := exec.Fetch(t.Context(), "Nissei", staticTarget(tc.target))

			assert.Nil(t, page)
			var fetchErr *fetcher.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, "Nissei", fetchErr.Source)
			assert.Equal(t, tc.target, fetchErr.URL)
			assert.Equal(t, tc.wantStatus, fetchErr.StatusCode)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestFetch_StaticCharset(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, "text/html; charset=windows-1252", "<p>A\xf1adir al carrito</p>"), nil
	})

	exec := newExecutor(rt, nil, fetcher.Options{})

	page, err := exec.Fetch(t.Context(), "Compulandia", staticTarget("https://compulandia.example/"))
	require.NoError(t, err)
	assert.Equal(t, "<p>Añadir al carrito</p>", string(page.HTML))
}

func TestFetch_StaticBodyLimit(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, "text/html; charset=utf-8", "0123456789abcdef"), nil
	})

	exec := newExecutor(rt, nil, fetcher.Options{MaxBodyBytes: 10})

	page, err := exec.Fetch(t.Context(), "Nissei", staticTarget("https://nissei.example/"))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(page.HTML))
}

func TestFetch_Rendered(t *testing.T) {
	renderer := &fakeRenderer{html: "<div class=\"card\"></div>"}
	exec := newExecutor(nil, renderer, fetcher.Options{})

	target := models.FetchTarget{URL: "https://tienda.example/shop/", Strategy: models.StrategyRendered}
	page, err := exec.Fetch(t.Context(), "TiendaMovil", target)
	require.NoError(t, err)

	assert.Equal(t, "<div class=\"card\"></div>", string(page.HTML))
	assert.Equal(t, 1, renderer.calls)
	assert.True(t, renderer.gotDeadline, "every rendered fetch runs under its own deadline")
}

func TestFetch_RenderedFailures(t *testing.T) {
	target := models.FetchTarget{URL: "https://tienda.example/shop/", Strategy: models.StrategyRendered}

	t.Run("No renderer", func(t *testing.T) {
		exec := newExecutor(nil, nil, fetcher.Options{})

		_, err := exec.Fetch(t.Context(), "TiendaMovil", target)
		require.ErrorIs(t, err, fetcher.ErrNoRenderer)
	})

	t.Run("Renderer error", func(t *testing.T) {
		renderErr := errors.New("browser crashed")
		exec := newExecutor(nil, &fakeRenderer{err: renderErr}, fetcher.Options{})

		_, err := exec.Fetch(t.Context(), "TiendaMovil", target)
		require.ErrorIs(t, err, renderErr)

		var fetchErr *fetcher.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, models.StrategyRendered, fetchErr.Strategy)
		assert.False(t, fetchErr.Timeout())
	})

	t.Run("Deadline exceeded", func(t *testing.T) {
		exec := newExecutor(nil, &fakeRenderer{block: true}, fetcher.Options{RenderTimeout: 20 * time.Millisecond})

		start := time.Now()
		_, err := exec.Fetch(t.Context(), "TiendaMovil", target)

		var fetchErr *fetcher.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.True(t, fetchErr.Timeout())
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("Unknown strategy", func(t *testing.T) {
		exec := newExecutor(nil, nil, fetcher.Options{})

		_, err := exec.Fetch(t.Context(), "TiendaMovil", models.FetchTarget{URL: target.URL, Strategy: "ftp"})
		require.ErrorIs(t, err, fetcher.ErrUnsupportedStrategy)
	})
}

func TestFetch_HostRateLimit(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, "text/html", "<html></html>"), nil
	})

	// One request per ~17 minutes: the second call cannot be admitted within its deadline.
	exec := newExecutor(rt, nil, fetcher.Options{HostRate: 0.001, Timeout: 50 * time.Millisecond})

	_, err := exec.Fetch(t.Context(), "Nissei", staticTarget("https://nissei.example/a"))
	require.NoError(t, err)

	_, err = exec.Fetch(t.Context(), "Nissei", staticTarget("https://nissei.example/b"))
	var fetchErr *fetcher.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "politeness wait")

	// Other hosts have their own budget.
	_, err = exec.Fetch(t.Context(), "CellShop", staticTarget("https://cellshop.example/a"))
	require.NoError(t, err)
}

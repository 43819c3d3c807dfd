package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.6367.91 Safari/537.36"

func TestParseUA(t *testing.T) {
	ua := ParseUA(chromeMac, "en-US,en;q=0.9")
	assert.Equal(t, "Chrome", ua.Browser)
	assert.Equal(t, "Desktop", ua.Device)
	assert.False(t, ua.IsBot)
	assert.Equal(t, "en-us", ua.PrimaryLang)
	assert.Contains(t, ua.Summary(), "Chrome 124")

	bot := ParseUA("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "")
	assert.True(t, bot.IsBot)
}

func TestPrimaryLang(t *testing.T) {
	assert.Equal(t, "fr", primaryLang("fr;q=0.8, en"))
	assert.Equal(t, "", primaryLang(""))
}

func TestEnrich(t *testing.T) {
	var got *Info
	h := Enrich(nil, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	r.Header.Set("User-Agent", chromeMac)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.NotNil(t, got)
	assert.Equal(t, "203.0.113.7", got.IP.String())
	assert.Empty(t, got.Geo.CountryISO)
	assert.Contains(t, got.LogFields(), "Chrome")
}

func TestClientIP_UntrustedIgnoresHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.2:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "198.51.100.2", clientIP(r, false).String())
}

func TestOpenGeo_Empty(t *testing.T) {
	g, err := OpenGeo("")
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.NoError(t, g.Close())

	_, err = OpenGeo("/does/not/exist.mmdb")
	assert.Error(t, err)
}

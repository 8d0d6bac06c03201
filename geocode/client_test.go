package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`[{"lat": "43.6629", "lon": "-79.3957", "display_name": "Harbord St & Spadina Ave"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "browse-api/1.0")
	pt, err := c.Resolve(context.Background(), "Harbord & Spadina")
	require.NoError(t, err)
	assert.InDelta(t, 43.6629, pt.Lat, 1e-9)
	assert.InDelta(t, -79.3957, pt.Lon, 1e-9)
	assert.Equal(t, "browse-api/1.0", gotUA)
	assert.Equal(t, "Harbord & Spadina", gotQuery)
}

func TestResolveNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Resolve(context.Background(), "nowhere at all")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestResolveBadCoordinate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat": "north", "lon": "-79.3957"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Resolve(context.Background(), "Annex")
	assert.Error(t, err)
}

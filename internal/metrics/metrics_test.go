package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/movies/{id}", "200"))
	RecordAPIRequest("GET", "/api/movies/{id}", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/movies/{id}", "200"))

	assert.Equal(t, before+1, after)
}

func TestRecordCatalogRequest_Outcome(t *testing.T) {
	ok := CatalogRequestsTotal.WithLabelValues("movie", "success")
	failed := CatalogRequestsTotal.WithLabelValues("movie", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordCatalogRequest("movie", time.Millisecond, nil)
	RecordCatalogRequest("movie", time.Millisecond, errors.New("timeout"))
	RecordCatalogRequest("movie", time.Millisecond, errors.New("timeout"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+2, testutil.ToFloat64(failed))
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(CacheHits.WithLabelValues("search"))
	misses := testutil.ToFloat64(CacheMisses.WithLabelValues("search"))

	RecordCacheLookup("search", true)
	RecordCacheLookup("search", false)

	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHits.WithLabelValues("search")))
	assert.Equal(t, misses+1, testutil.ToFloat64(CacheMisses.WithLabelValues("search")))
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	assert.Equal(t, base+1, testutil.ToFloat64(APIActiveRequests))
	TrackActiveRequest(false)
	assert.Equal(t, base, testutil.ToFloat64(APIActiveRequests))
}

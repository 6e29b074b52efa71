package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCounters(t *testing.T) {
	before := testutil.ToFloat64(jobsFinished.WithLabelValues("completed"))
	liveBefore := testutil.ToFloat64(liveJobs)

	IncJobStarted()
	assert.Equal(t, liveBefore+1, testutil.ToFloat64(liveJobs))

	IncJobFinished("completed")
	assert.Equal(t, before+1, testutil.ToFloat64(jobsFinished.WithLabelValues("completed")))
	assert.Equal(t, liveBefore, testutil.ToFloat64(liveJobs))
}

func TestAddTagsWrittenIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(tagsWritten)
	AddTagsWritten(0)
	AddTagsWritten(-3)
	AddTagsWritten(4)
	assert.Equal(t, before+4, testutil.ToFloat64(tagsWritten))
}

func TestHandlerServesPrometheusText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	IncJobStarted()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "portfolio_analysis_jobs_started_total")
}

package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	applicationsSubmittedTotal atomic.Uint64
	leadsImportedTotal         atomic.Uint64
	importRowErrorsTotal       atomic.Uint64
	campaignEmailsQueuedTotal  atomic.Uint64
	campaignEmailsSentTotal    atomic.Uint64
	campaignEmailsFailedTotal  atomic.Uint64
	campaignMessagesDropped    atomic.Uint64
	bestEffortFailuresTotal    atomic.Uint64
	cvFilesParsedTotal         atomic.Uint64
	cvAccountsCreatedTotal     atomic.Uint64

	importDuration = newHistogram([]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000})
	exportRows     = newHistogram([]float64{1, 10, 50, 100, 500, 1000, 5000, 10000})
)

// IncApplicationsSubmitted counts a public application.
func IncApplicationsSubmitted() {
	applicationsSubmittedTotal.Add(1)
}

// AddLeadsImported counts leads inserted by a CSV import.
func AddLeadsImported(n int) {
	if n > 0 {
		leadsImportedTotal.Add(uint64(n))
	}
}

// AddImportRowErrors counts rejected CSV rows.
func AddImportRowErrors(n int) {
	if n > 0 {
		importRowErrorsTotal.Add(uint64(n))
	}
}

// AddCampaignEmailsQueued counts campaign messages handed to the queue.
func AddCampaignEmailsQueued(n int) {
	if n > 0 {
		campaignEmailsQueuedTotal.Add(uint64(n))
	}
}

// IncCampaignEmailSent counts a delivered campaign email.
func IncCampaignEmailSent() {
	campaignEmailsSentTotal.Add(1)
}

// IncCampaignEmailFailed counts a failed campaign email.
func IncCampaignEmailFailed() {
	campaignEmailsFailedTotal.Add(1)
}

// IncCampaignMessageDropped counts a queue message deleted as undeliverable.
func IncCampaignMessageDropped() {
	campaignMessagesDropped.Add(1)
}

// IncBestEffortFailure counts a swallowed side-effect failure.
func IncBestEffortFailure() {
	bestEffortFailuresTotal.Add(1)
}

// AddCVFilesParsed counts archive entries that produced a profile.
func AddCVFilesParsed(n int) {
	if n > 0 {
		cvFilesParsedTotal.Add(uint64(n))
	}
}

// AddCVAccountsCreated counts accounts created from parsed CVs.
func AddCVAccountsCreated(n int) {
	if n > 0 {
		cvAccountsCreatedTotal.Add(uint64(n))
	}
}

// ObserveImportDurationMs records a CSV or CV import duration in milliseconds.
func ObserveImportDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	importDuration.Observe(value)
}

// ObserveExportRows records the size of an export.
func ObserveExportRows(n int) {
	exportRows.Observe(float64(n))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "applications_submitted_total", "Total applications submitted", applicationsSubmittedTotal.Load())
	writeCounter(&buf, "leads_imported_total", "Total leads imported from CSV", leadsImportedTotal.Load())
	writeCounter(&buf, "lead_import_row_errors_total", "Total CSV rows rejected", importRowErrorsTotal.Load())
	writeCounter(&buf, "campaign_emails_queued_total", "Total campaign emails queued", campaignEmailsQueuedTotal.Load())
	writeCounter(&buf, "campaign_emails_sent_total", "Total campaign emails sent", campaignEmailsSentTotal.Load())
	writeCounter(&buf, "campaign_emails_failed_total", "Total campaign emails failed", campaignEmailsFailedTotal.Load())
	writeCounter(&buf, "campaign_messages_dropped_total", "Total undeliverable campaign messages dropped", campaignMessagesDropped.Load())
	writeCounter(&buf, "best_effort_failures_total", "Total swallowed side-effect failures", bestEffortFailuresTotal.Load())
	writeCounter(&buf, "cv_files_parsed_total", "Total CV files parsed into profiles", cvFilesParsedTotal.Load())
	writeCounter(&buf, "cv_accounts_created_total", "Total accounts created from CVs", cvAccountsCreatedTotal.Load())
	writeHistogram(&buf, "import_duration_ms", "Import duration in milliseconds", importDuration.Snapshot())
	writeHistogram(&buf, "export_rows", "Rows per export", exportRows.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

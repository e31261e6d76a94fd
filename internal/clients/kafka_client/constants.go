package kafka_client

import "time"

const (
	KAFKA_TOPIC_REPORT_REQUESTS    = "report-requests"    // captures plus the report window to compute
	KAFKA_TOPIC_ENGAGEMENT_REPORTS = "engagement-reports" // finished engagement reports
)

const (
	MAX_RETRIES  = 5
	RETRY_DELAY  = 2 * time.Second
	POLL_TIMEOUT = time.Second
)

package api

// Issuer is a tracked debt issuer.
type Issuer struct {
	ID     int64  `json:"id"`
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
}

// Score is one credit score computed by the API for an issuer.
type Score struct {
	ID            int64         `json:"id"`
	IssuerID      int64         `json:"issuer_id"`
	Score         float64       `json:"score"`
	AsOf          Timestamp     `json:"as_of"`
	Contributions Contributions `json:"contributions,omitempty"`
}

// Event is a news item attached to an issuer.
type Event struct {
	ID          int64     `json:"id"`
	IssuerID    int64     `json:"issuer_id"`
	Source      string    `json:"source,omitempty"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	PublishedAt Timestamp `json:"published_at"`
	Sentiment   *float64  `json:"sentiment,omitempty"`
}

// Trend is an issuer's score history, oldest first. Scores and
// Timestamps are paired by index.
type Trend struct {
	IssuerID   int64       `json:"issuer_id"`
	Scores     []float64   `json:"scores"`
	Timestamps []Timestamp `json:"timestamps"`
}

// TrendPoint is one paired entry of a Trend.
type TrendPoint struct {
	Score float64
	At    Timestamp
}

// Points pairs scores with timestamps. Unpaired trailing values are
// dropped.
func (t Trend) Points() []TrendPoint {
	n := min(len(t.Scores), len(t.Timestamps))
	points := make([]TrendPoint, n)
	for i := range n {
		points[i] = TrendPoint{Score: t.Scores[i], At: t.Timestamps[i]}
	}
	return points
}

// Alert is a notification the API raised for an issuer.
type Alert struct {
	ID        int64     `json:"id"`
	IssuerID  int64     `json:"issuer_id"`
	CreatedAt Timestamp `json:"created_at"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}

// Health is the API's liveness report.
type Health struct {
	Status string `json:"status"`
}

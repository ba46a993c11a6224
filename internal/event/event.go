package event

// Category classifies the kind of observation an event represents.
type Category string

const (
	CategoryError       Category = "error"
	CategoryNetwork     Category = "network"
	CategoryPerformance Category = "performance"
	CategoryConsole     Category = "console"
	CategoryCustom      Category = "custom"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryError,
	CategoryNetwork,
	CategoryPerformance,
	CategoryConsole,
	CategoryCustom,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryError, CategoryNetwork, CategoryPerformance, CategoryConsole, CategoryCustom:
		return true
	default:
		return false
	}
}

// String returns the wire name of the category.
func (c Category) String() string {
	return string(c)
}

// Event is a single buffered observation. Events are immutable after
// construction and are destroyed once delivered or discarded.
type Event struct {
	ID            string         `json:"id"`
	Category      Category       `json:"category"`
	Timestamp     int64          `json:"timestamp"` // unix milliseconds
	SourceURL     string         `json:"sourceUrl"`
	UserAgent     string         `json:"userAgent"`
	SessionID     string         `json:"sessionId"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Payload       map[string]any `json:"payload"`
}

// DeliveryContext identifies the reporting application. It is attached to
// every outgoing batch, not to individual events.
type DeliveryContext struct {
	ProjectID   string `json:"projectId"`
	Environment string `json:"environment"`
	Service     string `json:"service"`
	Release     string `json:"release"`
}

// Batch is the request body for a single delivery.
type Batch struct {
	Events  []Event         `json:"events"`
	Context DeliveryContext `json:"context"`
}

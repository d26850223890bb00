package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/source"
)

// Verify interface compliance at compile time.
var _ http.Handler = (*TopicsHandler)(nil)

// Catalog describes the topics of the loaded recording.
type Catalog interface {
	Topics() []string
	Stats() map[string]source.TopicStats
}

// Topic is one entry of the topics listing.
//
//nolint:tagliatelle // superior snake-case yo.
type Topic struct {
	Name  string            `json:"name"`
	Stats source.TopicStats `json:"stats"`
}

// TopicsHandler handles GET /api/v1/topics requests.
type TopicsHandler struct {
	catalog Catalog
	logger  logrus.FieldLogger
}

// NewTopicsHandler creates a new topics handler.
func NewTopicsHandler(catalog Catalog, logger logrus.FieldLogger) *TopicsHandler {
	return &TopicsHandler{
		catalog: catalog,
		logger:  logger.WithField("handler", "topics"),
	}
}

// ServeHTTP lists the recording's topics in name order.
func (h *TopicsHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	stats := h.catalog.Stats()
	names := h.catalog.Topics()

	topics := make([]Topic, 0, len(names))
	for _, name := range names {
		topics = append(topics, Topic{Name: name, Stats: stats[name]})
	}

	writeJSON(w, h.logger, http.StatusOK, topics)
}

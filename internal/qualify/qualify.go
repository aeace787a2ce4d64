// Package qualify implements the base question scorer: a count of how
// many of the seven qualifying questions a lead has answered, read from
// the extracted preferences. The scoring engine treats the count as an
// opaque 0-7 input.
package qualify

import (
	"context"

	"github.com/sells-group/leadscore/internal/model"
)

// questionKeys are the preference fields the seven qualifying questions
// fill in, in question order.
var questionKeys = []string{
	"timeline",
	"budget",
	"location",
	"financing",
	"property_type",
	"bedrooms",
	"motivation",
}

// Scorer counts answered qualifying questions.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns the number of answered qualifying questions, 0-7.
func (s *Scorer) Score(_ context.Context, lead model.LeadRecord) (int, error) {
	answered := 0
	for _, key := range questionKeys {
		if _, ok := lead.PreferenceString(key); ok {
			answered++
			continue
		}
		if _, ok := lead.PreferenceNumber(key); ok {
			answered++
		}
	}
	return answered, nil
}

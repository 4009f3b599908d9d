// Package wanikani exposes the WaniKani v2 endpoints as typed calls on a
// Session. Reads go through the revalidating cache; writes go straight to
// the API.
package wanikani

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/client"
)

// Object types as reported in the envelope's "object" field.
const (
	ObjectUser                   = "user"
	ObjectReport                 = "report"
	ObjectAssignment             = "assignment"
	ObjectLevelProgression       = "level_progression"
	ObjectReset                  = "reset"
	ObjectReview                 = "review"
	ObjectReviewStatistic        = "review_statistic"
	ObjectSpacedRepetitionSystem = "spaced_repetition_system"
	ObjectStudyMaterial          = "study_material"
	ObjectVoiceActor             = "voice_actor"
	ObjectRadical                = "radical"
	ObjectKanji                  = "kanji"
	ObjectVocabulary             = "vocabulary"
	ObjectKanaVocabulary         = "kana_vocabulary"
)

var subjectObjects = []string{ObjectRadical, ObjectKanji, ObjectVocabulary, ObjectKanaVocabulary}

// Resource is a typed WaniKani resource. It is a fresh value on every call
// and never modified by the library afterwards.
type Resource[T any] struct {
	ID            int        `json:"id,omitempty"`
	Object        string     `json:"object"`
	URL           string     `json:"url"`
	DataUpdatedAt *time.Time `json:"data_updated_at"`
	Data          T          `json:"data"`
}

// decode types an envelope, checking its object type against want when
// given.
func decode[T any](raw *client.Resource, want ...string) (*Resource[T], error) {
	if len(want) > 0 && !contains(want, raw.Object) {
		return nil, &client.ParseError{
			URL: raw.URL,
			Err: fmt.Errorf("unexpected object %q, want one of %v", raw.Object, want),
		}
	}
	out := &Resource[T]{
		ID:            raw.ID,
		Object:        raw.Object,
		URL:           raw.URL,
		DataUpdatedAt: raw.DataUpdatedAt,
	}
	if err := json.Unmarshal(raw.Data, &out.Data); err != nil {
		return nil, &client.ParseError{URL: raw.URL, Body: raw.Data, Err: fmt.Errorf("decode %s data: %w", raw.Object, err)}
	}
	return out, nil
}

func decodeAll[T any](raws []client.Resource, want ...string) ([]Resource[T], error) {
	out := make([]Resource[T], 0, len(raws))
	for i := range raws {
		r, err := decode[T](&raws[i], want...)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

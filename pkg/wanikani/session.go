package wanikani

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/cache"
	"github.com/Sternrassler/wanikani-client/pkg/client"
	"github.com/Sternrassler/wanikani-client/pkg/logging"
	"github.com/Sternrassler/wanikani-client/pkg/pagination"
	"github.com/rs/zerolog"
)

// Session binds a client to a cache adapter. Reads always revalidate
// through the adapter; writes are sent uncached and the next read of an
// affected resource picks up the change.
type Session struct {
	client  *client.Client
	adapter *cache.Adapter
	walker  *pagination.Walker
	logger  zerolog.Logger
}

// NewSession creates a session. The adapter must wrap the same client.
func NewSession(c *client.Client, adapter *cache.Adapter) *Session {
	if c == nil || adapter == nil {
		panic("wanikani session needs a client and a cache adapter")
	}
	return &Session{
		client:  c,
		adapter: adapter,
		walker:  pagination.NewWalker(adapter, c, pagination.DefaultConfig()),
		logger:  logging.NewLogger(logging.ComponentSession),
	}
}

// Client returns the underlying API client.
func (s *Session) Client() *client.Client {
	return s.client
}

// Fetch is the raw cached GET: the payload of endpoint with params, always
// revalidated against the server.
func (s *Session) Fetch(ctx context.Context, endpoint string, params url.Values) (*cache.Result, error) {
	return s.adapter.Fetch(ctx, endpoint, params)
}

// Lookup returns the stored entry without contacting the server.
func (s *Session) Lookup(ctx context.Context, endpoint string, params url.Values) (*cache.Entry, error) {
	return s.adapter.Lookup(ctx, endpoint, params)
}

func getOne[T any](ctx context.Context, s *Session, endpoint string, want ...string) (*Resource[T], error) {
	res, err := s.adapter.Fetch(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	raw, err := res.Entry.Resource()
	if err != nil {
		return nil, err
	}
	return decode[T](raw, want...)
}

func getAll[T any](ctx context.Context, s *Session, endpoint string, params url.Values, want ...string) ([]Resource[T], error) {
	raws, err := s.walker.Collect(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	out, err := decodeAll[T](raws, want...)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("endpoint", endpoint).
		Int("count", len(out)).
		Msg("Collection loaded")
	return out, nil
}

func byID(collection string, id int) string {
	return collection + "/" + strconv.Itoa(id)
}

// User returns the token owner.
func (s *Session) User(ctx context.Context) (*Resource[User], error) {
	return getOne[User](ctx, s, "user", ObjectUser)
}

// Summary returns the available lessons and reviews.
func (s *Session) Summary(ctx context.Context) (*Resource[Summary], error) {
	return getOne[Summary](ctx, s, "summary", ObjectReport)
}

// Subject returns a radical, kanji, vocabulary or kana vocabulary by id.
func (s *Session) Subject(ctx context.Context, id int) (*Resource[Subject], error) {
	return getOne[Subject](ctx, s, byID("subjects", id), subjectObjects...)
}

// Subjects returns every subject matching f, across all pages.
func (s *Session) Subjects(ctx context.Context, f SubjectFilter) ([]Resource[Subject], error) {
	return getAll[Subject](ctx, s, "subjects", f.Values(), subjectObjects...)
}

// Assignment returns an assignment by id.
func (s *Session) Assignment(ctx context.Context, id int) (*Resource[Assignment], error) {
	return getOne[Assignment](ctx, s, byID("assignments", id), ObjectAssignment)
}

// Assignments returns every assignment matching f, across all pages.
func (s *Session) Assignments(ctx context.Context, f AssignmentFilter) ([]Resource[Assignment], error) {
	return getAll[Assignment](ctx, s, "assignments", f.Values(), ObjectAssignment)
}

// LevelProgression returns a level progression by id.
func (s *Session) LevelProgression(ctx context.Context, id int) (*Resource[LevelProgression], error) {
	return getOne[LevelProgression](ctx, s, byID("level_progressions", id), ObjectLevelProgression)
}

// LevelProgressions returns every level progression matching f.
func (s *Session) LevelProgressions(ctx context.Context, f IDFilter) ([]Resource[LevelProgression], error) {
	return getAll[LevelProgression](ctx, s, "level_progressions", f.Values(), ObjectLevelProgression)
}

// Reset returns a reset by id.
func (s *Session) Reset(ctx context.Context, id int) (*Resource[Reset], error) {
	return getOne[Reset](ctx, s, byID("resets", id), ObjectReset)
}

// Resets returns every reset matching f.
func (s *Session) Resets(ctx context.Context, f IDFilter) ([]Resource[Reset], error) {
	return getAll[Reset](ctx, s, "resets", f.Values(), ObjectReset)
}

// Review returns a review by id.
func (s *Session) Review(ctx context.Context, id int) (*Resource[Review], error) {
	return getOne[Review](ctx, s, byID("reviews", id), ObjectReview)
}

// Reviews returns every review matching f, across all pages.
func (s *Session) Reviews(ctx context.Context, f ReviewFilter) ([]Resource[Review], error) {
	return getAll[Review](ctx, s, "reviews", f.Values(), ObjectReview)
}

// ReviewStatistic returns a review statistic by id.
func (s *Session) ReviewStatistic(ctx context.Context, id int) (*Resource[ReviewStatistic], error) {
	return getOne[ReviewStatistic](ctx, s, byID("review_statistics", id), ObjectReviewStatistic)
}

// ReviewStatistics returns every review statistic matching f, across all pages.
func (s *Session) ReviewStatistics(ctx context.Context, f ReviewStatisticFilter) ([]Resource[ReviewStatistic], error) {
	return getAll[ReviewStatistic](ctx, s, "review_statistics", f.Values(), ObjectReviewStatistic)
}

// SpacedRepetitionSystem returns a spaced repetition system by id.
func (s *Session) SpacedRepetitionSystem(ctx context.Context, id int) (*Resource[SpacedRepetitionSystem], error) {
	return getOne[SpacedRepetitionSystem](ctx, s, byID("spaced_repetition_systems", id), ObjectSpacedRepetitionSystem)
}

// SpacedRepetitionSystems returns every spaced repetition system matching f.
func (s *Session) SpacedRepetitionSystems(ctx context.Context, f IDFilter) ([]Resource[SpacedRepetitionSystem], error) {
	return getAll[SpacedRepetitionSystem](ctx, s, "spaced_repetition_systems", f.Values(), ObjectSpacedRepetitionSystem)
}

// StudyMaterial returns a study material by id.
func (s *Session) StudyMaterial(ctx context.Context, id int) (*Resource[StudyMaterial], error) {
	return getOne[StudyMaterial](ctx, s, byID("study_materials", id), ObjectStudyMaterial)
}

// StudyMaterials returns every study material matching f, across all pages.
func (s *Session) StudyMaterials(ctx context.Context, f StudyMaterialFilter) ([]Resource[StudyMaterial], error) {
	return getAll[StudyMaterial](ctx, s, "study_materials", f.Values(), ObjectStudyMaterial)
}

// VoiceActor returns a voice actor by id.
func (s *Session) VoiceActor(ctx context.Context, id int) (*Resource[VoiceActor], error) {
	return getOne[VoiceActor](ctx, s, byID("voice_actors", id), ObjectVoiceActor)
}

// VoiceActors returns every voice actor matching f.
func (s *Session) VoiceActors(ctx context.Context, f IDFilter) ([]Resource[VoiceActor], error) {
	return getAll[VoiceActor](ctx, s, "voice_actors", f.Values(), ObjectVoiceActor)
}

// write sends an uncached request and returns the response with its
// envelope.
func (s *Session) write(ctx context.Context, method, path string, body any) (*client.Response, *client.Resource, error) {
	resp, err := s.client.Do(ctx, client.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("Write sent")
	raw, err := resp.Resource()
	if err != nil {
		return nil, nil, err
	}
	return resp, raw, nil
}

// UpdateUser changes the preferences of the token owner.
func (s *Session) UpdateUser(ctx context.Context, u UserUpdate) (*Resource[User], error) {
	var body userUpdateBody
	body.User.Preferences = u
	_, raw, err := s.write(ctx, http.MethodPut, "user", body)
	if err != nil {
		return nil, err
	}
	return decode[User](raw, ObjectUser)
}

// StartAssignment moves an assignment from lessons to reviews. A nil
// startedAt lets the server use the current time.
func (s *Session) StartAssignment(ctx context.Context, id int, startedAt *time.Time) (*Resource[Assignment], error) {
	_, raw, err := s.write(ctx, http.MethodPut, byID("assignments", id)+"/start", startAssignmentBody{StartedAt: startedAt})
	if err != nil {
		return nil, err
	}
	return decode[Assignment](raw, ObjectAssignment)
}

// CreateReview records a review and returns it with the assignment and
// review statistic it updated.
func (s *Session) CreateReview(ctx context.Context, r ReviewCreate) (*CreatedReview, error) {
	resp, raw, err := s.write(ctx, http.MethodPost, "reviews", reviewCreateBody{Review: r})
	if err != nil {
		return nil, err
	}
	review, err := decode[Review](raw, ObjectReview)
	if err != nil {
		return nil, err
	}
	out := &CreatedReview{Review: review}

	var extra resourcesUpdated
	if err := json.Unmarshal(resp.Body, &extra); err != nil {
		return nil, &client.ParseError{URL: resp.URL, Body: resp.Body, Err: err}
	}
	if raw := extra.ResourcesUpdated.Assignment; raw != nil {
		if out.Assignment, err = decode[Assignment](raw, ObjectAssignment); err != nil {
			return nil, err
		}
	}
	if raw := extra.ResourcesUpdated.ReviewStatistic; raw != nil {
		if out.ReviewStatistic, err = decode[ReviewStatistic](raw, ObjectReviewStatistic); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CreateStudyMaterial adds notes and synonyms to a subject.
func (s *Session) CreateStudyMaterial(ctx context.Context, m StudyMaterialCreate) (*Resource[StudyMaterial], error) {
	_, raw, err := s.write(ctx, http.MethodPost, "study_materials", studyMaterialBody[StudyMaterialCreate]{StudyMaterial: m})
	if err != nil {
		return nil, err
	}
	return decode[StudyMaterial](raw, ObjectStudyMaterial)
}

// UpdateStudyMaterial changes the notes and synonyms of a study material.
func (s *Session) UpdateStudyMaterial(ctx context.Context, id int, m StudyMaterialUpdate) (*Resource[StudyMaterial], error) {
	_, raw, err := s.write(ctx, http.MethodPut, byID("study_materials", id), studyMaterialBody[StudyMaterialUpdate]{StudyMaterial: m})
	if err != nil {
		return nil, err
	}
	return decode[StudyMaterial](raw, ObjectStudyMaterial)
}

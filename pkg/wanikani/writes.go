package wanikani

import (
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/client"
)

// UserUpdate changes user preferences. Nil fields are left unchanged.
type UserUpdate struct {
	DefaultVoiceActorID        *int    `json:"default_voice_actor_id,omitempty"`
	ExtraStudyAutoplayAudio    *bool   `json:"extra_study_autoplay_audio,omitempty"`
	LessonsAutoplayAudio       *bool   `json:"lessons_autoplay_audio,omitempty"`
	LessonsBatchSize           *int    `json:"lessons_batch_size,omitempty"`
	LessonsPresentationOrder   *string `json:"lessons_presentation_order,omitempty"`
	ReviewsAutoplayAudio       *bool   `json:"reviews_autoplay_audio,omitempty"`
	ReviewsDisplaySRSIndicator *bool   `json:"reviews_display_srs_indicator,omitempty"`
	ReviewsPresentationOrder   *string `json:"reviews_presentation_order,omitempty"`
}

type userUpdateBody struct {
	User struct {
		Preferences UserUpdate `json:"preferences"`
	} `json:"user"`
}

// ReviewCreate records a completed review. Set exactly one of AssignmentID
// and SubjectID; the API rejects anything else.
type ReviewCreate struct {
	AssignmentID            *int       `json:"assignment_id,omitempty"`
	SubjectID               *int       `json:"subject_id,omitempty"`
	IncorrectMeaningAnswers int        `json:"incorrect_meaning_answers"`
	IncorrectReadingAnswers int        `json:"incorrect_reading_answers"`
	CreatedAt               *time.Time `json:"created_at,omitempty"`
}

type reviewCreateBody struct {
	Review ReviewCreate `json:"review"`
}

// CreatedReview is the response to CreateReview: the new review and the
// resources it changed. Assignment and ReviewStatistic are nil when the
// server did not report them.
type CreatedReview struct {
	Review          *Resource[Review]
	Assignment      *Resource[Assignment]
	ReviewStatistic *Resource[ReviewStatistic]
}

type resourcesUpdated struct {
	ResourcesUpdated struct {
		Assignment      *client.Resource `json:"assignment"`
		ReviewStatistic *client.Resource `json:"review_statistic"`
	} `json:"resources_updated"`
}

// StudyMaterialCreate creates study material for a subject.
type StudyMaterialCreate struct {
	SubjectID       int      `json:"subject_id"`
	MeaningNote     *string  `json:"meaning_note,omitempty"`
	ReadingNote     *string  `json:"reading_note,omitempty"`
	MeaningSynonyms []string `json:"meaning_synonyms,omitempty"`
}

// StudyMaterialUpdate changes study material. Nil fields are left unchanged.
type StudyMaterialUpdate struct {
	MeaningNote     *string  `json:"meaning_note,omitempty"`
	ReadingNote     *string  `json:"reading_note,omitempty"`
	MeaningSynonyms []string `json:"meaning_synonyms,omitempty"`
}

type studyMaterialBody[T any] struct {
	StudyMaterial T `json:"study_material"`
}

type startAssignmentBody struct {
	StartedAt *time.Time `json:"started_at,omitempty"`
}

package wanikani

import (
	"time"

	"github.com/google/uuid"
)

// User is the data of the token owner.
type User struct {
	ID                       uuid.UUID    `json:"id"`
	Username                 string       `json:"username"`
	Level                    int          `json:"level"`
	ProfileURL               string       `json:"profile_url"`
	StartedAt                time.Time    `json:"started_at"`
	CurrentVacationStartedAt *time.Time   `json:"current_vacation_started_at"`
	Subscription             Subscription `json:"subscription"`
	Preferences              Preferences  `json:"preferences"`
}

// Subscription is the subscription state of a user.
type Subscription struct {
	Active          bool       `json:"active"`
	Type            string     `json:"type"`
	MaxLevelGranted int        `json:"max_level_granted"`
	PeriodEndsAt    *time.Time `json:"period_ends_at"`
}

// Preferences are the lesson and review settings of a user.
type Preferences struct {
	DefaultVoiceActorID        int    `json:"default_voice_actor_id"`
	ExtraStudyAutoplayAudio    bool   `json:"extra_study_autoplay_audio"`
	LessonsAutoplayAudio       bool   `json:"lessons_autoplay_audio"`
	LessonsBatchSize           int    `json:"lessons_batch_size"`
	LessonsPresentationOrder   string `json:"lessons_presentation_order"`
	ReviewsAutoplayAudio       bool   `json:"reviews_autoplay_audio"`
	ReviewsDisplaySRSIndicator bool   `json:"reviews_display_srs_indicator"`
	ReviewsPresentationOrder   string `json:"reviews_presentation_order"`
}

// Summary is the lessons and reviews report.
type Summary struct {
	Lessons       []SummaryBucket `json:"lessons"`
	NextReviewsAt *time.Time      `json:"next_reviews_at"`
	Reviews       []SummaryBucket `json:"reviews"`
}

// SummaryBucket lists the subjects that become available at one time.
type SummaryBucket struct {
	AvailableAt time.Time `json:"available_at"`
	SubjectIDs  []int     `json:"subject_ids"`
}

// Subject holds the fields of radicals, kanji and vocabulary. Fields that do
// not apply to a subject type are left empty.
type Subject struct {
	AuxiliaryMeanings        []AuxiliaryMeaning `json:"auxiliary_meanings"`
	Characters               *string            `json:"characters"`
	CreatedAt                time.Time          `json:"created_at"`
	DocumentURL              string             `json:"document_url"`
	HiddenAt                 *time.Time         `json:"hidden_at"`
	LessonPosition           int                `json:"lesson_position"`
	Level                    int                `json:"level"`
	MeaningMnemonic          string             `json:"meaning_mnemonic"`
	Meanings                 []Meaning          `json:"meanings"`
	Slug                     string             `json:"slug"`
	SpacedRepetitionSystemID int                `json:"spaced_repetition_system_id"`

	// Radicals
	AmalgamationSubjectIDs []int            `json:"amalgamation_subject_ids,omitempty"`
	CharacterImages        []CharacterImage `json:"character_images,omitempty"`

	// Kanji and vocabulary
	ComponentSubjectIDs       []int     `json:"component_subject_ids,omitempty"`
	Readings                  []Reading `json:"readings,omitempty"`
	ReadingMnemonic           string    `json:"reading_mnemonic,omitempty"`
	MeaningHint               *string   `json:"meaning_hint,omitempty"`
	ReadingHint               *string   `json:"reading_hint,omitempty"`
	VisuallySimilarSubjectIDs []int     `json:"visually_similar_subject_ids,omitempty"`

	// Vocabulary
	ContextSentences    []ContextSentence    `json:"context_sentences,omitempty"`
	PartsOfSpeech       []string             `json:"parts_of_speech,omitempty"`
	PronunciationAudios []PronunciationAudio `json:"pronunciation_audios,omitempty"`
}

// Meaning is a meaning of a subject.
type Meaning struct {
	Meaning        string `json:"meaning"`
	Primary        bool   `json:"primary"`
	AcceptedAnswer bool   `json:"accepted_answer"`
}

// AuxiliaryMeaning is an extra meaning to accept or reject.
type AuxiliaryMeaning struct {
	Meaning string `json:"meaning"`
	Type    string `json:"type"`
}

// Reading is a reading of a kanji or vocabulary.
type Reading struct {
	Reading        string `json:"reading"`
	Primary        bool   `json:"primary"`
	AcceptedAnswer bool   `json:"accepted_answer"`
	Type           string `json:"type,omitempty"`
}

// CharacterImage is a radical image without Unicode characters.
type CharacterImage struct {
	URL         string         `json:"url"`
	ContentType string         `json:"content_type"`
	Metadata    map[string]any `json:"metadata"`
}

// ContextSentence is a vocabulary example sentence.
type ContextSentence struct {
	En string `json:"en"`
	Ja string `json:"ja"`
}

// PronunciationAudio is a vocabulary audio recording.
type PronunciationAudio struct {
	URL         string         `json:"url"`
	ContentType string         `json:"content_type"`
	Metadata    map[string]any `json:"metadata"`
}

// Assignment tracks the SRS progress of a user on one subject.
type Assignment struct {
	AvailableAt   *time.Time `json:"available_at"`
	BurnedAt      *time.Time `json:"burned_at"`
	CreatedAt     time.Time  `json:"created_at"`
	Hidden        bool       `json:"hidden"`
	PassedAt      *time.Time `json:"passed_at"`
	ResurrectedAt *time.Time `json:"resurrected_at"`
	SRSStage      int        `json:"srs_stage"`
	StartedAt     *time.Time `json:"started_at"`
	SubjectID     int        `json:"subject_id"`
	SubjectType   string     `json:"subject_type"`
	UnlockedAt    *time.Time `json:"unlocked_at"`
}

// LevelProgression records when a user unlocked, started and passed a level.
type LevelProgression struct {
	AbandonedAt *time.Time `json:"abandoned_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Level       int        `json:"level"`
	PassedAt    *time.Time `json:"passed_at"`
	StartedAt   *time.Time `json:"started_at"`
	UnlockedAt  *time.Time `json:"unlocked_at"`
}

// Reset records a level reset of the user.
type Reset struct {
	ConfirmedAt   *time.Time `json:"confirmed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	OriginalLevel int        `json:"original_level"`
	TargetLevel   int        `json:"target_level"`
}

// Review is a single review of a subject.
type Review struct {
	AssignmentID             int       `json:"assignment_id"`
	CreatedAt                time.Time `json:"created_at"`
	EndingSRSStage           int       `json:"ending_srs_stage"`
	IncorrectMeaningAnswers  int       `json:"incorrect_meaning_answers"`
	IncorrectReadingAnswers  int       `json:"incorrect_reading_answers"`
	SpacedRepetitionSystemID int       `json:"spaced_repetition_system_id"`
	StartingSRSStage         int       `json:"starting_srs_stage"`
	SubjectID                int       `json:"subject_id"`
}

// ReviewStatistic summarizes the review history of a subject.
type ReviewStatistic struct {
	CreatedAt            time.Time `json:"created_at"`
	Hidden               bool      `json:"hidden"`
	MeaningCorrect       int       `json:"meaning_correct"`
	MeaningCurrentStreak int       `json:"meaning_current_streak"`
	MeaningIncorrect     int       `json:"meaning_incorrect"`
	MeaningMaxStreak     int       `json:"meaning_max_streak"`
	PercentageCorrect    int       `json:"percentage_correct"`
	ReadingCorrect       int       `json:"reading_correct"`
	ReadingCurrentStreak int       `json:"reading_current_streak"`
	ReadingIncorrect     int       `json:"reading_incorrect"`
	ReadingMaxStreak     int       `json:"reading_max_streak"`
	SubjectID            int       `json:"subject_id"`
	SubjectType          string    `json:"subject_type"`
}

// SpacedRepetitionSystem describes the stages and intervals of an SRS.
type SpacedRepetitionSystem struct {
	BurningStagePosition   int        `json:"burning_stage_position"`
	CreatedAt              time.Time  `json:"created_at"`
	Description            string     `json:"description"`
	Name                   string     `json:"name"`
	PassingStagePosition   int        `json:"passing_stage_position"`
	Stages                 []SRSStage `json:"stages"`
	StartingStagePosition  int        `json:"starting_stage_position"`
	UnlockingStagePosition int        `json:"unlocking_stage_position"`
}

// SRSStage is one stage of a spaced repetition system. Interval is nil for
// the unlocking and burning stages.
type SRSStage struct {
	Interval     *int    `json:"interval"`
	IntervalUnit *string `json:"interval_unit"`
	Position     int     `json:"position"`
}

// StudyMaterial holds the user notes and synonyms for a subject.
type StudyMaterial struct {
	CreatedAt       time.Time `json:"created_at"`
	Hidden          bool      `json:"hidden"`
	MeaningNote     *string   `json:"meaning_note"`
	MeaningSynonyms []string  `json:"meaning_synonyms"`
	ReadingNote     *string   `json:"reading_note"`
	SubjectID       int       `json:"subject_id"`
	SubjectType     string    `json:"subject_type"`
}

// VoiceActor is a voice actor of the pronunciation audios.
type VoiceActor struct {
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`
	Gender      string    `json:"gender"`
	Name        string    `json:"name"`
}

package memento

import "time"

// Tier is the security classification governing encryption and vector
// visibility for a Memory.
type Tier string

const (
	TierGeneral  Tier = "general"
	TierPersonal Tier = "personal"
	TierVault    Tier = "vault"
)

// ForgottenState tracks a Memory's position in the forget/restore lifecycle.
type ForgottenState string

const (
	StateActive        ForgottenState = "active"
	StateSuppressed     ForgottenState = "suppressed"
	StateArchived       ForgottenState = "archived"
	StatePendingDelete  ForgottenState = "pending_delete"
)

// LoopOwner identifies who owes a commitment.
type LoopOwner string

const (
	OwnerSelf   LoopOwner = "self"
	OwnerThem   LoopOwner = "them"
	OwnerMutual LoopOwner = "mutual"
)

// EngagementTrend summarizes a relationship's recent interaction cadence.
type EngagementTrend string

const (
	TrendRising EngagementTrend = "rising"
	TrendStable EngagementTrend = "stable"
	TrendFalling EngagementTrend = "falling"
	TrendCold   EngagementTrend = "cold"
)

// DeviceType is the kind of device a ContextFrame belongs to. Order below
// (mobile > desktop > web > api > mcp) is the fusion tie-break priority
// used by GetUnifiedUserContext.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
	DeviceWeb     DeviceType = "web"
	DeviceAPI     DeviceType = "api"
	DeviceMCP     DeviceType = "mcp"
)

// devicePriority returns lower-is-better rank for fusion tie-breaks.
func devicePriority(t DeviceType) int {
	switch t {
	case DeviceMobile:
		return 0
	case DeviceDesktop:
		return 1
	case DeviceWeb:
		return 2
	case DeviceAPI:
		return 3
	case DeviceMCP:
		return 4
	default:
		return 5
	}
}

// TimeBucket is a coarse time-of-day bucket used for anticipation features.
type TimeBucket string

const (
	BucketMorning   TimeBucket = "morning"
	BucketAfternoon TimeBucket = "afternoon"
	BucketEvening   TimeBucket = "evening"
	BucketNight     TimeBucket = "night"
)

// PatternStatus is the anticipation pattern state machine (spec.md §4.8).
type PatternStatus string

const (
	PatternNew       PatternStatus = "new"
	PatternCandidate PatternStatus = "candidate"
	PatternFormed    PatternStatus = "formed"
	PatternDecayed   PatternStatus = "decayed"
)

// FeedbackAction is the kind of signal recorded against a Pattern.
type FeedbackAction string

const (
	FeedbackUsed      FeedbackAction = "used"
	FeedbackIgnored   FeedbackAction = "ignored"
	FeedbackDismissed FeedbackAction = "dismissed"
)

// Commitment is one open-loop-shaped obligation extracted from a memory.
type Commitment struct {
	Text       string
	Owner      LoopOwner
	OtherParty string
	DueDate    *time.Time
	LoopType   string
}

// TimelineFact is one dated fact extracted from a memory.
type TimelineFact struct {
	Description string
	EventDate   time.Time
	Category    string
}

// ExtractedFeatures is the structured output of the feature extractor (C2).
type ExtractedFeatures struct {
	People        []string
	Topics        []string
	Commitments   []Commitment
	Events        []TimelineFact
	Sensitivities []string
}

// SalienceFactors is the persisted breakdown behind a Memory's salience.
type SalienceFactors struct {
	Emotion       float64
	Novelty       float64
	Relevance     float64
	Social        float64
	Consequential float64
}

// Memory is the core stored observation (spec.md §3).
type Memory struct {
	ID                string
	User              string
	CreatedAt         time.Time
	Text              string
	NormalizedText    string
	Features          ExtractedFeatures
	Salience          int
	SalienceFactors   SalienceFactors
	SecurityTier      Tier
	HasEnvelope       bool // true once an encryption envelope has been attached
	ForgottenState    ForgottenState
	ForgottenAt       *time.Time
	ForgottenReason   string
	ProjectTag        string
	AddedTags         []string
	AddedTopics       []string
	ExtractionStatus  string // ok | fallback | empty
	LastVotedAt       *time.Time
	PendingVectorSync bool // true while the vector upsert has not yet succeeded
}

// OpenLoop is an unresolved commitment derived from a memory.
type OpenLoop struct {
	ID             string
	User           string
	Description    string
	Owner          LoopOwner
	OtherParty     string
	DueDate        *time.Time
	LoopType       string
	SourceMemoryID string // empty for person-level loops not tied to a memory (forgetPerson closes these)
	CreatedAt      time.Time
	ClosedAt       *time.Time
	ClosedNote     string
}

// IsOverdue is derived, not stored: now > dueDate and not yet closed.
func (l OpenLoop) IsOverdue(now time.Time) bool {
	return l.ClosedAt == nil && l.DueDate != nil && now.After(*l.DueDate)
}

// TimelineEvent is a dated fact derived from a memory.
type TimelineEvent struct {
	ID             string
	User           string
	Description    string
	Person         string
	EventDate      time.Time
	Category       string
	SourceMemoryID string
}

// Relationship is an aggregate maintained by the enrichment pipeline on
// every memory write that mentions a person.
type Relationship struct {
	User               string
	ContactName        string
	TotalInteractions  int
	LastInteractionAt  time.Time
	EngagementTrend    EngagementTrend
	Sensitivities      []string
	ColdThresholdDays  int
}

// DaysSinceLastInteraction is derived at read time.
func (r Relationship) DaysSinceLastInteraction(now time.Time) float64 {
	return now.Sub(r.LastInteractionAt).Hours() / 24.0
}

// ContextDimension wraps a context value with its provenance.
type ContextDimension struct {
	Value      string
	UserSet    bool // true if the caller set this explicitly, false if derived
	SetAt      time.Time
}

// ContextFrame is a per-(user,device) snapshot of location/people/activity/mood.
type ContextFrame struct {
	User        string
	DeviceID    string
	DeviceType  DeviceType
	Location    ContextDimension
	People      []string
	Activity    ContextDimension
	Mood        ContextDimension
	Calendar    []CalendarEvent
	LastUpdated time.Time
}

// CalendarEvent is a minimal external-calendar shape consumed by anticipation.
type CalendarEvent struct {
	Title     string
	StartsAt  time.Time
	EndsAt    time.Time
	Location  string
	People    []string
}

// RelevanceSnapshot is computed immediately after setContext (spec.md §4.6).
type RelevanceSnapshot struct {
	AboutPeople     []string
	SuggestedTopics []string
	Sensitivities   []string
}

// UnifiedUserContext is the fused view across active device frames.
type UnifiedUserContext struct {
	Location      string
	People        []string
	Activity      string
	Mood          string
	PrimaryDevice string
	ActiveDevices []string
}

// ContextObservation is one sample recorded whenever a frame changes
// (spec.md §4.7).
type ContextObservation struct {
	ID                 string
	User               string
	ObservedAt         time.Time
	TimeOfDay          TimeBucket
	DayOfWeek          time.Weekday
	LocationBucket     string
	People              []string
	Activity            string
	RecurringEventTitle string
}

// FeatureKey canonicalizes the bucket an observation (and a Pattern) belongs to.
type FeatureKey struct {
	TimeOfDay           TimeBucket
	DayOfWeek           time.Weekday
	LocationBucket      string
	RecurringEventTitle string
}

// PatternFeedback is one append-only ledger entry for a Pattern.
type PatternFeedback struct {
	Action FeedbackAction
	At     time.Time
}

// Pattern is a recurring feature bucket learned from context observations.
type Pattern struct {
	ID               string
	User             string
	Key              FeatureKey
	Prototype        ContextObservation
	Count            int
	Confidence       float64
	LastObservedAt   time.Time
	FirstObservedAt  time.Time
	FormedAt         *time.Time
	Status           PatternStatus
	FeedbackLedger   []PatternFeedback
}

// AnticipatedContext is a forecast produced by the anticipation engine.
type AnticipatedContext struct {
	TriggerTime        time.Time
	Confidence         float64
	Features           ContextObservation
	SuggestedBriefings []string
	SuggestedTopics    []string
	SuggestedMemories  []Memory
}

// DayOutlook is the morning-oriented summary produced by dayOutlook.
type DayOutlook struct {
	Greeting               string
	Outlook                string
	Insights               []string
	UpcomingContextSwitches []AnticipatedContext
}

// NGramDistribution is the character-trigram block of a fingerprint.
type NGramDistribution struct {
	Top       map[string]float64
	Signature string
}

// FunctionWordProfile is the function-word block of a fingerprint.
type FunctionWordProfile struct {
	Freq      map[string]float64
	Signature string
}

// VocabularyMetrics is the vocabulary block of a fingerprint.
type VocabularyMetrics struct {
	AvgWordLength      float64
	AbbreviationRatio  float64
	TypeTokenRatio     float64
	HapaxRatio         float64
	AvgSyllables       float64
}

// SyntaxMetrics is the syntax block of a fingerprint.
type SyntaxMetrics struct {
	AvgSentenceLength   float64
	CapitalizationRatio float64
	CommaFrequency      float64
	ClauseComplexity    float64
	PunctuationStyle    string
	UsesSemicolons      bool
	UsesEllipsis        bool
}

// StyleMetrics is the style block of a fingerprint.
type StyleMetrics struct {
	Formality        float64
	EmojiDensity     float64
	Politeness       float64
	ContractionRatio float64
	NumberStyle      string
	UsesLists        bool
}

// TimingProfile is the timing block of a fingerprint.
type TimingProfile struct {
	ActiveHours map[int]bool
	ActiveDays  map[time.Weekday]bool
}

// BehavioralSignals is the set of measurement blocks derived from one
// message — the same shape as BehavioralFingerprint, but unweighted by
// sample history, used both to build a fingerprint and to score a match.
type BehavioralSignals struct {
	CharNGrams    NGramDistribution
	FunctionWords FunctionWordProfile
	Vocabulary    VocabularyMetrics
	Syntax        SyntaxMetrics
	Style         StyleMetrics
	Timing        TimingProfile
	Topics        map[string]float64
}

// BehavioralFingerprint is a per-user stylometric signature.
type BehavioralFingerprint struct {
	User        string
	SampleCount int
	Signals     BehavioralSignals
	LastUpdated time.Time
}

// IdentificationReady reports whether a fingerprint has enough samples to
// be used as a match candidate (spec.md §4.8).
func (f BehavioralFingerprint) IdentificationReady(threshold int) bool {
	return f.SampleCount >= threshold
}

// PredictionFeedback is the outcome recorded against a behavioral Prediction.
type PredictionFeedback string

const (
	FeedbackConfirmed    PredictionFeedback = "confirmed"
	FeedbackCorrectedTo  PredictionFeedback = "corrected"
)

// Prediction is a behavioral-identity match result, kept for feedback.
type Prediction struct {
	ID             string
	MessageHash    string
	PredictedUser  string
	Confidence     float64
	PerBlockScores map[string]float64
	ObservedAt     time.Time
	Feedback       PredictionFeedback
	ActualUser     string // set when Feedback == FeedbackCorrectedTo
	FeedbackAt     *time.Time
}

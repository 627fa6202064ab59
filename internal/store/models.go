package store

import "time"

// Status represents the lifecycle of a story.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusArchived   Status = "archived"
)

var allStatuses = []Status{
	StatusDraft,
	StatusGenerating,
	StatusCompleted,
	StatusFailed,
	StatusArchived,
}

// transitions lists the statuses each status may move to. Re-setting the
// current status is handled separately as a no-op.
var transitions = map[Status][]Status{
	StatusDraft:      {StatusGenerating},
	StatusGenerating: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusGenerating, StatusArchived},
	StatusCompleted:  {StatusArchived},
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user-supplied string into a Status.
func ParseStatus(value string) (Status, bool) {
	for _, status := range allStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// sourcesFor returns the statuses from which next can be reached.
func sourcesFor(next Status) []Status {
	var sources []Status
	for _, from := range allStatuses {
		if from.CanTransition(next) {
			sources = append(sources, from)
		}
	}
	return sources
}

// Terminal reports whether no workflow is running for the story.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusArchived
}

// StructureMode records how a story's pages were produced.
type StructureMode string

const (
	StructureModeStructured StructureMode = "structured"
	StructureModeFallback   StructureMode = "fallback"
)

// AssetKind distinguishes page media.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindAudio AssetKind = "audio"
)

// AssetKinds returns the kinds generated for every page.
func AssetKinds() []AssetKind {
	return []AssetKind{AssetKindImage, AssetKindAudio}
}

// AssetStatus is the outcome of one generation attempt.
type AssetStatus string

const (
	AssetStatusReady  AssetStatus = "ready"
	AssetStatusFailed AssetStatus = "failed"
)

const (
	// MinPages and MaxPages bound the number of pages per story.
	MinPages = 4
	MaxPages = 8
)

// Story is the aggregate root for a generation request.
type Story struct {
	ID               string
	Topic            string
	TargetAge        float64
	Status           Status
	Title            string
	Text             string
	RefineIterations int
	StructureMode    StructureMode
	PageCount        int
	FailureKind      string
	FailureReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Page is one ordered unit of a story.
type Page struct {
	ID                 int64
	StoryID            string
	Index              int
	Text               string
	IllustrationPrompt string
	CreatedAt          time.Time
}

// Asset is a generated media artifact for a page. Failed attempts are kept
// with an empty FilePath and the failure in ErrorMessage.
type Asset struct {
	ID           int64
	PageID       int64
	Kind         AssetKind
	FilePath     string
	SizeBytes    int64
	Status       AssetStatus
	ErrorMessage string
	CreatedAt    time.Time
}

// NewPage describes a page to insert. Index must equal its position.
type NewPage struct {
	Index              int
	Text               string
	IllustrationPrompt string
}

// NewAsset describes an asset row to insert.
type NewAsset struct {
	PageID       int64
	Kind         AssetKind
	FilePath     string
	SizeBytes    int64
	Status       AssetStatus
	ErrorMessage string
}

// Content is the approved text and structuring result of a story.
type Content struct {
	Title            string
	Text             string
	RefineIterations int
	StructureMode    StructureMode
}

// Failure explains why a story ended in the failed status.
type Failure struct {
	Kind   string
	Reason string
}

// PageAssets pairs a page with every asset recorded for it.
type PageAssets struct {
	Page   Page
	Assets []Asset
}

// Graph is a story with its pages in index order and all of their assets.
type Graph struct {
	Story *Story
	Pages []PageAssets
}

// ReadyAsset returns the most recent ready asset of kind for the page.
func (p PageAssets) ReadyAsset(kind AssetKind) (Asset, bool) {
	for i := len(p.Assets) - 1; i >= 0; i-- {
		if a := p.Assets[i]; a.Kind == kind && a.Status == AssetStatusReady {
			return a, true
		}
	}
	return Asset{}, false
}

// AssetCounts tallies ready and failed assets across the graph.
func (g *Graph) AssetCounts() (ready, failed int) {
	if g == nil {
		return 0, 0
	}
	for _, page := range g.Pages {
		for _, asset := range page.Assets {
			if asset.Status == AssetStatusReady {
				ready++
			} else {
				failed++
			}
		}
	}
	return ready, failed
}

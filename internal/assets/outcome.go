package assets

import "storyloom/internal/store"

// Outcome is the result of one (page, kind) task.
type Outcome struct {
	PageID    int64
	PageIndex int
	Kind      store.AssetKind
	Status    store.AssetStatus
	FilePath  string
	SizeBytes int64
	Err       error
}

func (o Outcome) fail(err error) Outcome {
	o.Status = store.AssetStatusFailed
	o.FilePath = ""
	o.SizeBytes = 0
	o.Err = err
	return o
}

// Requested reports whether the task ran or was scheduled at all.
func (o Outcome) Requested() bool {
	return o.Status != ""
}

// NewAsset converts the outcome into a row for the store.
func (o Outcome) NewAsset() store.NewAsset {
	asset := store.NewAsset{
		PageID:    o.PageID,
		Kind:      o.Kind,
		FilePath:  o.FilePath,
		SizeBytes: o.SizeBytes,
		Status:    o.Status,
	}
	if o.Err != nil {
		asset.ErrorMessage = o.Err.Error()
	}
	return asset
}

// PageResult holds the outcomes for one page. A kind that was not requested
// has a zero Outcome.
type PageResult struct {
	Page  store.Page
	Image Outcome
	Audio Outcome
}

// Outcomes returns the requested outcomes, image first.
func (r PageResult) Outcomes() []Outcome {
	var out []Outcome
	for _, o := range []Outcome{r.Image, r.Audio} {
		if o.Requested() {
			out = append(out, o)
		}
	}
	return out
}

// Counts tallies ready and failed outcomes across results.
func Counts(results []PageResult) (ready, failed int) {
	for _, result := range results {
		for _, outcome := range result.Outcomes() {
			if outcome.Status == store.AssetStatusReady {
				ready++
			} else {
				failed++
			}
		}
	}
	return ready, failed
}

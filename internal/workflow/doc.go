// Package workflow drives a story through refinement, structuring and asset
// generation, persisting each stage boundary in the store.
//
// Run creates the story and walks it draft -> generating -> completed, or to
// failed with a classified reason. Asset failures never fail a story: the
// terminal record shows which assets are missing. Retry resumes failed
// stories, Archive and Delete manage finished ones, and RecoverStale cleans
// up after processes that died mid-run. Per-story file locks keep two
// processes from working on one story.
package workflow

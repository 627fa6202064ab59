// Package notifications delivers story outcomes via ntfy.
//
// The ntfy implementation publishes to the topic URL configured in
// config.toml and degrades to a no-op when no topic is set. The workflow
// depends only on the Service interface, and a failed notification is
// logged but never changes a story's status.
package notifications

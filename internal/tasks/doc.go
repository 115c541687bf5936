// Package tasks owns the job table and the per-job event channels.
//
// # Registry
//
// [Registry] accepts source URLs with [Registry.Submit], records each as a pending
// [models.Job] and drives it on its own goroutine:
//
//  1. pending → running, publishing a status event
//  2. metadata query through the download tool
//  3. audio download, publishing each parsed percentage as received
//  4. output lookup by sanitized title prefix
//  5. tag embed of the inferred metadata (required)
//  6. thumbnail embed (best effort, logged on failure)
//  7. running → complete, publishing the filename and metadata
//
// Any failing step ends the job in failed with a reason taken from the tool's
// diagnostic output. Terminal jobs never change again. Readers get value snapshots
// from [Registry.Get] and [Registry.List].
//
// A positive MaxConcurrent bounds how many jobs run at once; queued jobs stay pending.
// A positive Retention lets [Registry.Janitor] evict terminal jobs after the window.
//
// # Broadcast
//
// [Broadcaster] keeps an ordered observer list per job. Subscribing replays the current
// state as one event (complete, error or the last progress) before any later event, so
// late subscribers never miss the outcome. A complete or error event is the last one an
// observer receives. Observer panics are recovered and logged.
//
// # Playlists
//
// [Registry.SubmitPlaylist] lists a playlist and submits its entries through a rate
// limiter, reporting [ProgressUpdate] values on a non-blocking channel.
package tasks

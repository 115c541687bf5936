// Package services adapts the external media tools and the downloads directory to typed Go APIs.
//
// # yt-dlp
//
// [YTDLP] builds yt-dlp invocations for metadata queries, audio downloads, flat playlist
// listings and thumbnail searches. Download progress is parsed line by line from the
// tool's output with [ParseProgress] and handed to the caller as it arrives.
//
// # ffmpeg
//
// [FFmpeg] writes and reads container tags and attaches or extracts cover art. Every
// rewrite goes to a temporary file that replaces the original only on success.
//
// # Library
//
// [Library] lists the audio files in the downloads directory and applies tag edits by
// bare filename. Names that carry a path are rejected.
//
// # Errors
//
// Tool failures surface as [process.ExitError], which unwraps to [shared.ErrToolFailed].
// Output that cannot be decoded maps to [shared.ErrToolOutput].
package services

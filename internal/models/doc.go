// Package models defines the data carried between the job registry, the tool adapters, persistence and the HTTP layer.
//
// The package contains three groups of types:
//
// 1. Job state: snapshots handed out by the registry
//   - [Job] : one request to turn a source URL into a tagged audio file
//   - [State] : pending, running, complete, failed
//   - [Event] : a status, progress, complete or error notification for one job
//
// 2. Tool records: values produced by yt-dlp and ffmpeg
//   - [VideoInfo] : the decoded --dump-json record
//   - [Playlist] / [PlaylistEntry] : flat playlist listings
//   - [Tags] : title, artist, album and date as stored in the container
//
// 3. Derived and persisted values
//   - [Inferred] : best-effort metadata guessed from a title and description
//   - [LibraryFile] : an audio file in the downloads directory with its tags
//   - [HistoryEntry] : a finished download recorded in the database
package models

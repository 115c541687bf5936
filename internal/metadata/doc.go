// Package metadata guesses music tags from the noisy free text attached to a video.
//
// [Infer] maps a title and description onto [models.Inferred]. It is pure: no I/O, no clock,
// no randomness, and it never fails. A field with no usable signal is left empty.
//
// Each field is resolved by an ordered list of [Strategy] values. A strategy proposes at most
// one raw candidate; the [Engine] cleans it, validates it and either accepts it or moves on to
// the next strategy:
//
//   - Artist: dash-separated title prefix, labeled description line ("Artist:", "Performed by"),
//     pipe or tilde separated title prefix
//   - Album: labeled description line ("Album:", "From the album -"), inline "from the album"
//     phrase, album/EP/LP/single parenthetical in the title
//   - Release year: labeled release/year line, ℗ or © mark, first bare year in the description,
//     first year in the title
//
// Candidates are trimmed of surrounding punctuation and quotes, and rejected when shorter than
// two or longer than a hundred characters or when they look like a link.
package metadata

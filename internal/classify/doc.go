// Package classify derives the semantic kind of filesystem entries (image,
// video, archive, directory) by probing content. Extensions are trusted only
// for archive identity; image and video detection attempt a real decode or
// probe so renamed and extension-less captures still classify correctly.
package classify

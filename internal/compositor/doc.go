// Package compositor merges a resolved media/overlay pair into one viewable
// artifact. Still images are composited in-process with the standard image
// stack; videos delegate to ffmpeg with the overlay rescaled to the frame,
// centered, and held for the full stream duration while audio is preserved.
// The media always dictates the output resolution and, for images, the
// output format.
package compositor

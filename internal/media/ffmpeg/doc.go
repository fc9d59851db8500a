// Package ffmpeg builds and executes the ffmpeg invocation that composites
// a static overlay image over a video stream.
package ffmpeg

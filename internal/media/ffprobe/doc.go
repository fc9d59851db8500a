// Package ffprobe wraps the ffprobe binary for container inspection. It is
// the probing capability behind video classification and the dimension and
// duration queries the compositor needs before overlaying.
package ffprobe

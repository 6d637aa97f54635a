// Package pcm models in-memory mono audio and converts it to and from WAV.
package pcm

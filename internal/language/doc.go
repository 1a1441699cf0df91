// Package language normalizes the language hints handed to transcription.
//
// The --lang flag and the transcription.language setting accept ISO 639-1,
// ISO 639-2, English word forms and BCP 47 tags; everything is reduced to the
// 2-letter code WhisperX takes on its command line.
package language

package captions

// Token is a single time-stamped word or sub-word unit emitted by transcription.
type Token struct {
	Text           string  `json:"text"`
	StartInSeconds float64 `json:"startInSeconds"`
	EndInSeconds   float64 `json:"endInSeconds"`
	Confidence     float64 `json:"confidence"`
}

// Caption is one or more merged tokens displayed as a unit. Its end is derived
// when a timeline is built.
type Caption struct {
	StartInSeconds float64 `json:"startInSeconds"`
	Text           string  `json:"text"`
}

// Package speech models speech records, search filters and their aggregation.
package speech

import "strings"

// Record is a single utterance returned by the speech search API. Immutable once received.
type Record struct {
	SpeechID        string `json:"speechID,omitempty"`
	Speaker         string `json:"speaker"`
	Date            string `json:"date"`
	Speech          string `json:"speech"`
	Meeting         string `json:"meeting,omitempty"`
	NameOfMeeting   string `json:"nameOfMeeting,omitempty"`
	MeetingURL      string `json:"meetingURL,omitempty"`
	SpeakerPosition string `json:"speakerPosition,omitempty"`
}

// MeetingName returns the first non-empty of Meeting and NameOfMeeting.
func (r *Record) MeetingName() string {
	if m := strings.TrimSpace(r.Meeting); m != "" {
		return m
	}
	return strings.TrimSpace(r.NameOfMeeting)
}

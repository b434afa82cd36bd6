package extract

import (
	"encoding/json"

	"github.com/sharevia/snapshotd/internal/snapshot"
)

// xExtractor handles payloads scraped from X posts.
type xExtractor struct{}

type xPayload struct {
	Description string            `json:"description"`
	Text        string            `json:"text"`
	Content     string            `json:"content"`
	Photos      []string          `json:"photos"`
	Videos      []json.RawMessage `json:"videos"`
	UserPosted  string            `json:"user_posted"`
	Followers   int64             `json:"followers"`
}

// Extract normalizes an X result item. The provider is inconsistent about
// where the post body lives, so the text falls back through the known keys.
func (xExtractor) Extract(payload []byte) (snapshot.ExtractionResult, error) {
	var p xPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return snapshot.ExtractionResult{}, &snapshot.MalformedPayloadError{
			Kind:   snapshot.KindX,
			Reason: "not a JSON object",
		}
	}

	media := make([]snapshot.MediaRef, 0, len(p.Photos)+len(p.Videos))
	for _, photo := range p.Photos {
		if photo != "" {
			media = append(media, snapshot.MediaRef{URL: photo, Type: snapshot.MediaImage})
		}
	}
	for _, raw := range p.Videos {
		if url := videoURL(raw); url != "" {
			media = append(media, snapshot.MediaRef{URL: url, Type: snapshot.MediaVideo})
		}
	}
	media = dedupeMedia(media)

	text := firstNonEmpty(p.Description, p.Text, p.Content)
	if text == "" && len(media) == 0 {
		return snapshot.ExtractionResult{}, &snapshot.MalformedPayloadError{
			Kind:   snapshot.KindX,
			Reason: "no post body and no media",
		}
	}

	result := snapshot.ExtractionResult{Text: text, Media: media}
	if p.UserPosted != "" || p.Followers > 0 {
		result.Profile = &snapshot.Profile{
			Handle:    p.UserPosted,
			Followers: p.Followers,
		}
	}
	return result, nil
}

// videoURL accepts either a bare URL string or an object with a video_url
// key; both shapes appear in provider payloads.
func videoURL(raw json.RawMessage) string {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	var obj struct {
		VideoURL string `json:"video_url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.VideoURL
	}
	return ""
}

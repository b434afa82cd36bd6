package extract

import (
	"encoding/json"

	"github.com/sharevia/snapshotd/internal/snapshot"
)

// linkedinExtractor handles payloads scraped from LinkedIn posts.
type linkedinExtractor struct{}

type linkedinPayload struct {
	PostText string   `json:"post_text"`
	Text     string   `json:"text"`
	Title    string   `json:"title"`
	Headline string   `json:"headline"`
	Images   []string `json:"images"`
	UserID   string   `json:"user_id"`
}

// Extract normalizes a LinkedIn result item.
func (linkedinExtractor) Extract(payload []byte) (snapshot.ExtractionResult, error) {
	var p linkedinPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return snapshot.ExtractionResult{}, &snapshot.MalformedPayloadError{
			Kind:   snapshot.KindLinkedIn,
			Reason: "not a JSON object",
		}
	}

	media := make([]snapshot.MediaRef, 0, len(p.Images))
	for _, image := range p.Images {
		if image != "" {
			media = append(media, snapshot.MediaRef{URL: image, Type: snapshot.MediaImage})
		}
	}
	media = dedupeMedia(media)

	text := firstNonEmpty(p.PostText, p.Text, p.Title, p.Headline)
	if text == "" && len(media) == 0 {
		return snapshot.ExtractionResult{}, &snapshot.MalformedPayloadError{
			Kind:   snapshot.KindLinkedIn,
			Reason: "no post body and no media",
		}
	}

	result := snapshot.ExtractionResult{Text: text, Media: media}
	if p.UserID != "" {
		result.Profile = &snapshot.Profile{Name: p.UserID}
	}
	return result, nil
}

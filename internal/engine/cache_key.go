package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// keyPayload is the canonical fingerprint of one compilation request. Maps
// marshal with sorted keys, so the JSON form is deterministic regardless of
// insertion order.
type keyPayload struct {
	TemplateID        string         `json:"template_id"`
	TemplateVersion   int            `json:"template_version"`
	Style             string         `json:"style"`
	CustomPrompt      string         `json:"custom_prompt"`
	PhotoType         string         `json:"photo_type"`
	FamilyMemberCount int            `json:"family_member_count"`
	Values            map[string]any `json:"values,omitempty"`
	Options           Options        `json:"options"`
}

func cacheKey(def *template.Definition, ctx *template.RuntimeContext, opts Options) string {
	payload := keyPayload{
		TemplateID:      def.ID,
		TemplateVersion: def.Version,
		Options:         opts,
	}
	if ctx != nil {
		payload.Style = ctx.Style
		payload.CustomPrompt = ctx.CustomPrompt
		payload.PhotoType = string(ctx.PhotoType)
		payload.FamilyMemberCount = ctx.FamilyMemberCount
		payload.Values = ctx.Values
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// Values held something unmarshalable; fall back to an uncacheable
		// composite that still varies by template and style.
		data = []byte(def.ID + "|" + payload.Style + "|" + payload.CustomPrompt)
	}

	sum := sha256.Sum256(data)
	return def.ID + ":" + hex.EncodeToString(sum[:])
}

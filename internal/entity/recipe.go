package entity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var markupTags = regexp.MustCompile(`<[^>]*>`)

// SourceType identifies where a recipe candidate came from.
type SourceType string

const (
	SourceManual  SourceType = "manual"
	SourceWebsite SourceType = "website"
	SourceSocial  SourceType = "social"
	SourceImage   SourceType = "image"
)

// ParsedRecipe is a normalized recipe candidate produced by extraction.
type ParsedRecipe struct {
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	SourceType      SourceType   `json:"source_type"`
	SourceURL       string       `json:"source_url,omitempty"`
	PrepTime        *int         `json:"prep_time,omitempty"`
	CookTime        *int         `json:"cook_time,omitempty"`
	TotalTime       *int         `json:"total_time,omitempty"`
	Servings        *int         `json:"servings,omitempty"`
	Ingredients     Ingredients  `json:"ingredients"`
	Instructions    Instructions `json:"instructions"`
	Media           Media        `json:"media"`
	ConfidenceScore *float64     `json:"confidence_score,omitempty"`

	// ScoredFingerprint is the content fingerprint the confidence score was
	// computed against.
	ScoredFingerprint string `json:"-"`
}

// HasContent reports whether both ingredients and instructions are present.
func (r *ParsedRecipe) HasContent() bool {
	return !r.Ingredients.IsEmpty() && !r.Instructions.IsEmpty()
}

// Fingerprint hashes the content the confidence score depends on.
func (r *ParsedRecipe) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", r.Title, r.Description)
	fmt.Fprintf(h, "%s\x00%s\x00", r.Ingredients.Text(), r.Instructions.Text())
	for _, p := range []*int{r.PrepTime, r.CookTime, r.TotalTime, r.Servings} {
		if p == nil {
			h.Write([]byte("-\x00"))
			continue
		}
		fmt.Fprintf(h, "%d\x00", *p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ScoreIsCurrent reports whether the attached score was computed against the
// current content.
func (r *ParsedRecipe) ScoreIsCurrent() bool {
	return r.ConfidenceScore != nil && r.ScoredFingerprint == r.Fingerprint()
}

// Clone returns a deep copy of the recipe.
func (r *ParsedRecipe) Clone() *ParsedRecipe {
	if r == nil {
		return nil
	}
	c := *r
	c.PrepTime = cloneInt(r.PrepTime)
	c.CookTime = cloneInt(r.CookTime)
	c.TotalTime = cloneInt(r.TotalTime)
	c.Servings = cloneInt(r.Servings)
	if r.ConfidenceScore != nil {
		s := *r.ConfidenceScore
		c.ConfidenceScore = &s
	}
	c.Ingredients = r.Ingredients.Clone()
	c.Instructions = r.Instructions.Clone()
	c.Media.Items = append([]MediaItem(nil), r.Media.Items...)
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IngredientGroup is a named, ordered section of ingredients.
type IngredientGroup struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// Ingredients holds either a flat list or ordered named groups. JSON encodes
// the flat form as an array and the grouped form as an object whose key order
// follows Groups.
type Ingredients struct {
	Flat   []string
	Groups []IngredientGroup
}

// FlatIngredients builds a flat ingredient list.
func FlatIngredients(items ...string) Ingredients {
	return Ingredients{Flat: items}
}

func (in Ingredients) IsEmpty() bool {
	return len(in.All()) == 0
}

func (in Ingredients) IsGrouped() bool {
	return len(in.Groups) > 0
}

// All returns every ingredient line in order, across groups.
func (in Ingredients) All() []string {
	if !in.IsGrouped() {
		return in.Flat
	}
	var out []string
	for _, g := range in.Groups {
		out = append(out, g.Items...)
	}
	return out
}

// Count is the number of ingredient lines.
func (in Ingredients) Count() int {
	return len(in.All())
}

// Text joins all ingredient lines with newlines.
func (in Ingredients) Text() string {
	return strings.Join(in.All(), "\n")
}

// Validate checks that exactly one representation is used and that grouped
// ingredients are well formed.
func (in Ingredients) Validate() error {
	if len(in.Flat) > 0 && len(in.Groups) > 0 {
		return NewStructuralError("ingredients mix flat and grouped representations", nil)
	}
	for i, g := range in.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return NewStructuralError(fmt.Sprintf("ingredient group %d has no name", i+1), nil)
		}
		if len(g.Items) == 0 {
			return NewStructuralError(fmt.Sprintf("ingredient group %q is empty", g.Name), nil)
		}
	}
	for _, item := range in.All() {
		if strings.TrimSpace(item) == "" {
			return NewStructuralError("ingredients contain an empty line", nil)
		}
	}
	return nil
}

func (in Ingredients) Clone() Ingredients {
	var c Ingredients
	if in.Flat != nil {
		c.Flat = append([]string(nil), in.Flat...)
	}
	for _, g := range in.Groups {
		c.Groups = append(c.Groups, IngredientGroup{Name: g.Name, Items: append([]string(nil), g.Items...)})
	}
	return c
}

func (in Ingredients) MarshalJSON() ([]byte, error) {
	if !in.IsGrouped() {
		if in.Flat == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(in.Flat)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range in.Groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g.Name)
		if err != nil {
			return nil, err
		}
		items := g.Items
		if items == nil {
			items = []string{}
		}
		val, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (in *Ingredients) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*in = Ingredients{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var flat []string
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return NewStructuralError("ingredients array must contain strings", err)
		}
		in.Flat = flat
		return nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return NewStructuralError("malformed ingredient groups", err)
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return NewStructuralError("malformed ingredient groups", err)
			}
			name, ok := tok.(string)
			if !ok {
				return NewStructuralError("ingredient group name must be a string", nil)
			}
			var items []string
			if err := dec.Decode(&items); err != nil {
				return NewStructuralError(fmt.Sprintf("ingredient group %q must be an array of strings", name), err)
			}
			in.Groups = append(in.Groups, IngredientGroup{Name: name, Items: items})
		}
		return nil
	default:
		return NewStructuralError("ingredients must be an array or an object of arrays", nil)
	}
}

// Instructions holds either ordered steps or pre-rendered step markup.
type Instructions struct {
	Steps  []string
	Markup string
}

// StepInstructions builds step-form instructions.
func StepInstructions(steps ...string) Instructions {
	return Instructions{Steps: steps}
}

func (in Instructions) IsEmpty() bool {
	return len(in.Steps) == 0 && strings.TrimSpace(in.Markup) == ""
}

// Count is the number of steps; markup counts as a single step.
func (in Instructions) Count() int {
	if len(in.Steps) > 0 {
		return len(in.Steps)
	}
	if strings.TrimSpace(in.Markup) != "" {
		return 1
	}
	return 0
}

// Text returns the plain-text content of the instructions.
func (in Instructions) Text() string {
	if len(in.Steps) > 0 {
		return strings.Join(in.Steps, "\n")
	}
	return strings.TrimSpace(markupTags.ReplaceAllString(in.Markup, " "))
}

// Validate checks that exactly one representation is used.
func (in Instructions) Validate() error {
	if len(in.Steps) > 0 && strings.TrimSpace(in.Markup) != "" {
		return NewStructuralError("instructions mix steps and markup", nil)
	}
	for _, s := range in.Steps {
		if strings.TrimSpace(s) == "" {
			return NewStructuralError("instructions contain an empty step", nil)
		}
	}
	return nil
}

func (in Instructions) Clone() Instructions {
	c := Instructions{Markup: in.Markup}
	if in.Steps != nil {
		c.Steps = append([]string(nil), in.Steps...)
	}
	return c
}

func (in Instructions) MarshalJSON() ([]byte, error) {
	if len(in.Steps) == 0 && in.Markup != "" {
		return json.Marshal(in.Markup)
	}
	steps := in.Steps
	if steps == nil {
		steps = []string{}
	}
	return json.Marshal(steps)
}

func (in *Instructions) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*in = Instructions{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &in.Markup)
	case '[':
		if err := json.Unmarshal(trimmed, &in.Steps); err != nil {
			return NewStructuralError("instructions array must contain strings", err)
		}
		return nil
	case '{':
		var wrapped struct {
			Steps []string `json:"steps"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return NewStructuralError("instructions object must carry a steps array", err)
		}
		in.Steps = wrapped.Steps
		return nil
	default:
		return NewStructuralError("instructions must be a string, an array or {\"steps\": [...]}", nil)
	}
}

// MediaRole describes how a media item is used.
type MediaRole string

const (
	MediaImage     MediaRole = "image"
	MediaThumbnail MediaRole = "thumbnail"
	MediaVideo     MediaRole = "video"
)

// MediaItem is one image or video reference.
type MediaItem struct {
	URL    string    `json:"url"`
	Role   MediaRole `json:"role"`
	Source string    `json:"source,omitempty"` // meta, structured, content, caption
	Alt    string    `json:"alt,omitempty"`
	Width  int       `json:"width,omitempty"`
	Height int       `json:"height,omitempty"`
}

// Media groups the image and video references of a recipe.
type Media struct {
	Items []MediaItem `json:"items"`
}

// Images returns the URLs of all non-video items.
func (m Media) Images() []string {
	var out []string
	for _, it := range m.Items {
		if it.Role != MediaVideo {
			out = append(out, it.URL)
		}
	}
	return out
}

// VideoURL returns the first video URL, if any.
func (m Media) VideoURL() string {
	for _, it := range m.Items {
		if it.Role == MediaVideo {
			return it.URL
		}
	}
	return ""
}

func (m Media) MarshalJSON() ([]byte, error) {
	items := m.Items
	if items == nil {
		items = []MediaItem{}
	}
	images := m.Images()
	if images == nil {
		images = []string{}
	}
	video := m.VideoURL()
	return json.Marshal(struct {
		Items    []MediaItem `json:"items"`
		Images   []string    `json:"images"`
		IsVideo  bool        `json:"is_video"`
		VideoURL string      `json:"video_url,omitempty"`
	}{items, images, video != "", video})
}

func (m *Media) UnmarshalJSON(data []byte) error {
	var raw struct {
		Items []MediaItem `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewStructuralError("media must be an object with items", err)
	}
	m.Items = raw.Items
	return nil
}
